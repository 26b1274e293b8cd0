// Package rekognition implements recognition.Recognizer on Amazon Rekognition.
package rekognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/kozaktomas/photo-search/internal/constants"
	"github.com/kozaktomas/photo-search/internal/recognition"
	"github.com/kozaktomas/photo-search/internal/storage"
)

// API is the subset of the Rekognition client used by Client.
type API interface {
	CreateCollection(ctx context.Context, params *rekognition.CreateCollectionInput, optFns ...func(*rekognition.Options)) (*rekognition.CreateCollectionOutput, error)
	IndexFaces(ctx context.Context, params *rekognition.IndexFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.IndexFacesOutput, error)
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	SearchFacesByImage(ctx context.Context, params *rekognition.SearchFacesByImageInput, optFns ...func(*rekognition.Options)) (*rekognition.SearchFacesByImageOutput, error)
	DeleteFaces(ctx context.Context, params *rekognition.DeleteFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DeleteFacesOutput, error)
}

// Client is a Recognizer bound to one collection.
type Client struct {
	api          API
	collectionID string
	threshold    float32
	maxMatches   int32
}

// New creates a Rekognition recognizer for collectionID. threshold is the
// minimum similarity percentage for search matches.
func New(api API, collectionID string, threshold float32, maxMatches int) *Client {
	return &Client{
		api:          api,
		collectionID: collectionID,
		threshold:    threshold,
		maxMatches:   int32(min(maxMatches, 4096)),
	}
}

func image(loc storage.Location) *types.Image {
	return &types.Image{
		S3Object: &types.S3Object{
			Bucket: aws.String(loc.Bucket),
			Name:   aws.String(loc.Key),
		},
	}
}

// translate maps modeled service exceptions onto recognition errors.
func translate(op string, err error) error {
	var (
		missing    *types.InvalidS3ObjectException
		badFormat  *types.InvalidImageFormatException
		badParam   *types.InvalidParameterException
		tooLarge   *types.ImageTooLargeException
		noResource *types.ResourceNotFoundException
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Errorf("%s: %w: %w", op, recognition.ErrImageNotFound, err)
	case errors.As(err, &badFormat), errors.As(err, &tooLarge):
		return fmt.Errorf("%s: %w: %w", op, recognition.ErrInvalidImageFormat, err)
	case errors.As(err, &badParam):
		return fmt.Errorf("%s: %w: %w", op, recognition.ErrInvalidParameter, err)
	case errors.As(err, &noResource):
		return fmt.Errorf("%s: collection not found: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateCollection creates the collection.
func (c *Client) CreateCollection(ctx context.Context) error {
	_, err := c.api.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(c.collectionID),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return translate("create collection", err)
	}
	return nil
}

// IndexFace indexes the most prominent face of the image.
func (c *Client) IndexFace(ctx context.Context, loc storage.Location, externalID string) (string, error) {
	out, err := c.api.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId:    aws.String(c.collectionID),
		ExternalImageId: aws.String(externalID),
		Image:           image(loc),
		MaxFaces:        aws.Int32(constants.MaxIndexedFacesPerPhoto),
		QualityFilter:   types.QualityFilterAuto,
	})
	if err != nil {
		return "", translate("index faces", err)
	}
	if len(out.FaceRecords) == 0 || out.FaceRecords[0].Face == nil {
		return "", nil
	}
	return aws.ToString(out.FaceRecords[0].Face.FaceId), nil
}

// DetectFaces returns bounding boxes of every face in the image.
func (c *Client) DetectFaces(ctx context.Context, loc storage.Location) ([]recognition.BoundingBox, error) {
	out, err := c.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: image(loc),
	})
	if err != nil {
		return nil, translate("detect faces", err)
	}

	boxes := make([]recognition.BoundingBox, 0, len(out.FaceDetails))
	for _, d := range out.FaceDetails {
		if d.BoundingBox == nil {
			continue
		}
		boxes = append(boxes, recognition.BoundingBox{
			Left:   float64(aws.ToFloat32(d.BoundingBox.Left)),
			Top:    float64(aws.ToFloat32(d.BoundingBox.Top)),
			Width:  float64(aws.ToFloat32(d.BoundingBox.Width)),
			Height: float64(aws.ToFloat32(d.BoundingBox.Height)),
		})
	}
	return boxes, nil
}

// SearchFaces finds collection faces similar to the face in the image.
func (c *Client) SearchFaces(ctx context.Context, loc storage.Location) ([]recognition.Match, error) {
	out, err := c.api.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(c.collectionID),
		Image:              image(loc),
		FaceMatchThreshold: aws.Float32(c.threshold),
		MaxFaces:           aws.Int32(c.maxMatches),
	})
	if err != nil {
		return nil, translate("search faces", err)
	}

	matches := make([]recognition.Match, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		if m.Face == nil {
			continue
		}
		matches = append(matches, recognition.Match{
			FaceID:          aws.ToString(m.Face.FaceId),
			ExternalImageID: aws.ToString(m.Face.ExternalImageId),
			Similarity:      float64(aws.ToFloat32(m.Similarity)),
		})
	}
	return matches, nil
}

// DeleteFaces removes faces from the collection.
func (c *Client) DeleteFaces(ctx context.Context, faceIDs []string) error {
	if len(faceIDs) == 0 {
		return nil
	}
	_, err := c.api.DeleteFaces(ctx, &rekognition.DeleteFacesInput{
		CollectionId: aws.String(c.collectionID),
		FaceIds:      faceIDs,
	})
	if err != nil {
		return translate("delete faces", err)
	}
	return nil
}
