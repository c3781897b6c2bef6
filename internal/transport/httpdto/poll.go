package httpdto

import "pollbox/internal/domain/poll"

// CreatePollRequest is used for POST /createPoll
type CreatePollRequest struct {
	Question     string   `json:"question"`
	FreeResponse *bool    `json:"freeResponse"`
	Responses    []string `json:"responses,omitempty"`
}

// PollDTO is the poll definition as shown to voters and moderators.
type PollDTO struct {
	UUID         string   `json:"uuid"`
	Question     string   `json:"question"`
	FreeResponse bool     `json:"freeResponse"`
	Responses    []string `json:"responses,omitempty"`
}

// CreatePollResponse carries the voter token (jwt) and moderator token (endJwt).
type CreatePollResponse struct {
	JWT     string  `json:"jwt"`
	Payload PollDTO `json:"payload"`
	EndJWT  string  `json:"endJwt"`
}

// AddVoteRequest is used for POST /addVote. Exactly one of CustomResponse
// and ResponseIdx must be set.
type AddVoteRequest struct {
	PollJWT        string  `json:"pollJwt"`
	CustomResponse *string `json:"customResponse,omitempty"`
	ResponseIdx    *int    `json:"responseIdx,omitempty"`
}

// GetResultsRequest is used for POST /getResults
type GetResultsRequest struct {
	EndJWT string `json:"endJwt"`
}

// IndexedResultsResponse is returned by getResults for an indexed poll.
type IndexedResultsResponse struct {
	Poll   PollDTO     `json:"poll"`
	Count  int         `json:"count"`
	Counts map[int]int `json:"counts"`
}

// FreeResultsResponse is returned by getResults for a free-response poll.
// URL points at the exported answer file.
type FreeResultsResponse struct {
	Poll  PollDTO `json:"poll"`
	Count int     `json:"count"`
	URL   string  `json:"url"`
}

func NewPollDTO(def poll.Definition) PollDTO {
	return PollDTO{
		UUID:         def.ID.String(),
		Question:     def.Question,
		FreeResponse: def.FreeResponse,
		Responses:    def.Responses,
	}
}

// NewResultsResponse picks the result shape matching the poll kind.
func NewResultsResponse(t poll.Tally) any {
	if t.Poll.FreeResponse {
		return FreeResultsResponse{Poll: NewPollDTO(t.Poll), Count: t.TotalVotes, URL: t.ExportURL}
	}
	counts := t.Counts
	if counts == nil {
		counts = map[int]int{}
	}
	return IndexedResultsResponse{Poll: NewPollDTO(t.Poll), Count: t.TotalVotes, Counts: counts}
}
