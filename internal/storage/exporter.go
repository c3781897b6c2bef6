package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

type ExportResult struct {
	Key   string
	URL   string
	Lines int
}

// ExportKey is the object key holding a poll's free-text answers.
func ExportKey(pollID uuid.UUID) string {
	return pollID.String() + ".txt"
}

// ExportFreeResponses streams every answer as one line into <pollID>.txt.
//
// The object is written as a multipart upload and only completed once every
// answer was uploaded; any failure aborts the upload so no partial object is
// ever visible at the public URL.
func (c *Client) ExportFreeResponses(ctx context.Context, pollID uuid.UUID, answers iter.Seq2[string, error]) (ExportResult, error) {
	if c == nil || c.s3 == nil {
		return ExportResult{}, errors.New("s3 storage is not configured")
	}

	key := ExportKey(pollID)
	create := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(textMimeType),
	}
	if c.acl != "" {
		create.ACL = c.acl
	}
	started, err := c.s3.CreateMultipartUpload(ctx, create)
	if err != nil {
		return ExportResult{}, fmt.Errorf("start export %s: %w", key, err)
	}

	w := &partWriter{client: c, key: key, uploadID: aws.ToString(started.UploadId)}
	lines, err := w.writeAll(ctx, answers)
	if err == nil {
		err = w.complete(ctx)
	}
	if err != nil {
		w.abort(ctx)
		return ExportResult{}, fmt.Errorf("export %s: %w", key, err)
	}

	return ExportResult{Key: key, URL: c.FileURL(key), Lines: lines}, nil
}

// lineBreaks flattens an answer onto a single line so the object's line
// count always equals the number of answers.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

type partWriter struct {
	client   *Client
	key      string
	uploadID string
	buf      bytes.Buffer
	parts    []types.CompletedPart
}

func (w *partWriter) writeAll(ctx context.Context, answers iter.Seq2[string, error]) (int, error) {
	lines := 0
	for answer, err := range answers {
		if err != nil {
			return lines, err
		}
		lineBreaks.WriteString(&w.buf, answer)
		w.buf.WriteByte('\n')
		lines++
		if w.buf.Len() >= w.client.partSize {
			if err := w.flush(ctx); err != nil {
				return lines, err
			}
		}
	}
	return lines, nil
}

func (w *partWriter) flush(ctx context.Context) error {
	partNumber := int32(len(w.parts) + 1)
	out, err := w.client.s3.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(w.client.bucket),
		Key:        aws.String(w.key),
		UploadId:   aws.String(w.uploadID),
		PartNumber: aws.Int32(partNumber),
		Body:       bytes.NewReader(bytes.Clone(w.buf.Bytes())),
	})
	if err != nil {
		return fmt.Errorf("upload part %d: %w", partNumber, err)
	}
	w.parts = append(w.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(partNumber),
	})
	w.buf.Reset()
	return nil
}

func (w *partWriter) complete(ctx context.Context) error {
	// A multipart upload needs at least one part, even for an empty export.
	if w.buf.Len() > 0 || len(w.parts) == 0 {
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	_, err := w.client.s3.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(w.client.bucket),
		Key:             aws.String(w.key),
		UploadId:        aws.String(w.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: w.parts},
	})
	if err != nil {
		return fmt.Errorf("complete upload: %w", err)
	}
	return nil
}

func (w *partWriter) abort(ctx context.Context) {
	_, _ = w.client.s3.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.client.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
}
