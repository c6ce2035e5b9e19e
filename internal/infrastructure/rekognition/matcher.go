// Package rekognition adapts the AWS Rekognition face index to the check-in
// domain. The collection is a single global resource shared across all
// events; it is treated as an untrusted oracle returning candidates only, and
// all per-event isolation happens downstream in the resolver.
package rekognition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/checkin-api/internal/domain"
)

const (
	// maxImageBytes is the ceiling enforced before any provider call.
	maxImageBytes = 5 * 1024 * 1024
	// minDetectConfidence is the detector confidence an enrollment photo's
	// face must reach.
	minDetectConfidence = 80
	// requestTimeout bounds each individual provider call.
	requestTimeout = 5 * time.Second
	// maxRetries is the number of retries after the initial attempt.
	maxRetries = 2
	// backoffBase is the initial retry interval.
	backoffBase = 200 * time.Millisecond
	// maxSearchFaces caps how many candidates one search returns.
	maxSearchFaces = 10
)

// api is the subset of the Rekognition client the matcher uses.
// *rekognition.Client satisfies it.
type api interface {
	DetectFaces(ctx context.Context, in *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	IndexFaces(ctx context.Context, in *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	SearchFacesByImage(ctx context.Context, in *rekognition.SearchFacesByImageInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	ListFaces(ctx context.Context, in *rekognition.ListFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.ListFacesOutput, error)
	DeleteFaces(ctx context.Context, in *rekognition.DeleteFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DeleteFacesOutput, error)
	CreateCollection(ctx context.Context, in *rekognition.CreateCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
}

// Matcher wraps enroll/search/revoke against one Rekognition collection.
// An unconfigured matcher (nil client or empty collection) fails closed:
// every operation returns domain.ErrProviderUnavailable.
type Matcher struct {
	client     api
	collection string
}

func NewMatcher(client api, collection string) *Matcher {
	return &Matcher{client: client, collection: collection}
}

func (m *Matcher) configured() bool {
	return m != nil && m.client != nil && m.collection != ""
}

// EnsureCollection creates the face collection if it doesn't already exist.
// Safe to call on every startup.
func (m *Matcher) EnsureCollection(ctx context.Context) {
	if !m.configured() {
		slog.Warn("rekognition matcher unconfigured, face check-in disabled")
		return
	}
	_, err := m.client.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(m.collection),
	})
	if err != nil {
		var exists *types.ResourceAlreadyExistsException
		if !errors.As(err, &exists) {
			slog.Warn("could not create face collection", "collection", m.collection, "err", err)
		}
	} else {
		slog.Info("created face collection", "collection", m.collection)
	}
}

// Enroll indexes one face image under the given enrollment key and returns
// the provider's face handle. Preconditions (size ceiling, exactly one face,
// detector confidence) are checked locally before the index call; violations
// return *domain.ImageRejectedError and are never retried.
func (m *Matcher) Enroll(ctx context.Context, image []byte, key string) (string, error) {
	if !m.configured() {
		return "", domain.ErrProviderUnavailable
	}
	if len(image) > maxImageBytes {
		return "", &domain.ImageRejectedError{Reason: domain.ImageTooLarge}
	}

	var detect *rekognition.DetectFacesOutput
	err := m.call(ctx, func(cctx context.Context) error {
		var err error
		detect, err = m.client.DetectFaces(cctx, &rekognition.DetectFacesInput{
			Image: &types.Image{Bytes: image},
		})
		return err
	})
	if err != nil {
		return "", err
	}
	switch n := len(detect.FaceDetails); {
	case n == 0:
		return "", &domain.ImageRejectedError{Reason: domain.ImageNoFace}
	case n > 1:
		return "", &domain.ImageRejectedError{Reason: domain.ImageMultipleFaces}
	}
	if c := detect.FaceDetails[0].Confidence; c == nil || *c < minDetectConfidence {
		return "", &domain.ImageRejectedError{Reason: domain.ImageLowConfidence}
	}

	var indexed *rekognition.IndexFacesOutput
	err = m.call(ctx, func(cctx context.Context) error {
		var err error
		indexed, err = m.client.IndexFaces(cctx, &rekognition.IndexFacesInput{
			CollectionId:    aws.String(m.collection),
			Image:           &types.Image{Bytes: image},
			ExternalImageId: aws.String(key),
			MaxFaces:        aws.Int32(1),
		})
		return err
	})
	if err != nil {
		return "", err
	}
	if len(indexed.FaceRecords) == 0 || indexed.FaceRecords[0].Face == nil || indexed.FaceRecords[0].Face.FaceId == nil {
		return "", fmt.Errorf("index faces returned no face record: %w", domain.ErrProviderUnavailable)
	}
	return *indexed.FaceRecords[0].Face.FaceId, nil
}

// Search runs a similarity search and returns candidates at or above
// threshold, ranked by descending similarity. An empty slice means no match
// and is not an error.
func (m *Matcher) Search(ctx context.Context, image []byte, threshold float64) ([]domain.MatchCandidate, error) {
	if !m.configured() {
		return nil, domain.ErrProviderUnavailable
	}
	if len(image) > maxImageBytes {
		return nil, &domain.ImageRejectedError{Reason: domain.ImageTooLarge}
	}

	var out *rekognition.SearchFacesByImageOutput
	err := m.call(ctx, func(cctx context.Context) error {
		var err error
		out, err = m.client.SearchFacesByImage(cctx, &rekognition.SearchFacesByImageInput{
			CollectionId:       aws.String(m.collection),
			Image:              &types.Image{Bytes: image},
			FaceMatchThreshold: aws.Float32(float32(threshold)),
			MaxFaces:           aws.Int32(maxSearchFaces),
		})
		return err
	})
	if err != nil {
		// Rekognition reports "no detectable face in the query image" as a
		// parameter error, which for a check-in photo is an input defect.
		var ipe *types.InvalidParameterException
		if errors.As(err, &ipe) {
			return nil, &domain.ImageRejectedError{Reason: domain.ImageNoFace}
		}
		return nil, err
	}

	candidates := make([]domain.MatchCandidate, 0, len(out.FaceMatches))
	for _, fm := range out.FaceMatches {
		if fm.Face == nil || fm.Face.ExternalImageId == nil || fm.Similarity == nil {
			continue
		}
		if float64(*fm.Similarity) < threshold {
			continue
		}
		c := domain.MatchCandidate{
			EnrollmentKey: *fm.Face.ExternalImageId,
			Similarity:    float64(*fm.Similarity),
		}
		if fm.Face.Confidence != nil {
			c.Confidence = float64(*fm.Face.Confidence)
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates, nil
}

// Revoke deletes every face indexed under the given enrollment key.
// Idempotent: revoking a key with no indexed faces succeeds.
func (m *Matcher) Revoke(ctx context.Context, key string) error {
	if !m.configured() {
		return domain.ErrProviderUnavailable
	}

	var faceIDs []string
	var nextToken *string
	for {
		var out *rekognition.ListFacesOutput
		err := m.call(ctx, func(cctx context.Context) error {
			var err error
			out, err = m.client.ListFaces(cctx, &rekognition.ListFacesInput{
				CollectionId: aws.String(m.collection),
				NextToken:    nextToken,
			})
			return err
		})
		if err != nil {
			return err
		}
		for _, f := range out.Faces {
			if f.ExternalImageId != nil && *f.ExternalImageId == key && f.FaceId != nil {
				faceIDs = append(faceIDs, *f.FaceId)
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	if len(faceIDs) == 0 {
		return nil
	}

	return m.call(ctx, func(cctx context.Context) error {
		_, err := m.client.DeleteFaces(cctx, &rekognition.DeleteFacesInput{
			CollectionId: aws.String(m.collection),
			FaceIds:      faceIDs,
		})
		return err
	})
}

// call runs one provider operation with the per-call timeout and the bounded
// retry policy. Non-retryable errors abort immediately; exhausted retries
// surface as domain.ErrProviderUnavailable.
func (m *Matcher) call(ctx context.Context, op func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = backoffBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)

	err := backoff.Retry(func() error {
		cctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		err := op(cctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err == nil {
		return nil
	}
	if !retryable(err) {
		return err
	}
	return fmt.Errorf("%v: %w", err, domain.ErrProviderUnavailable)
}

// retryable reports whether an error is a transient provider or network
// failure. Client-side parameter and validation errors are permanent.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ThrottlingException", "ProvisionedThroughputExceededException",
			"InternalServerError", "ServiceUnavailableException":
			return true
		}
		return ae.ErrorFault() == smithy.FaultServer
	}
	// Timeouts and transport errors don't implement APIError.
	return true
}
