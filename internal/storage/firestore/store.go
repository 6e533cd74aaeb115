// Package firestore stores the progress document in Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JakeFAU/progress-service/internal/progress"
)

// DefaultCollection holds the singleton progress document.
const DefaultCollection = "progress"

// Config selects the project, credentials, and collection.
type Config struct {
	Credentials Credentials
	Collection  string
}

// Store implements progress.Store on top of a Firestore document.
type Store struct {
	client *gfirestore.Client
	doc    *gfirestore.DocumentRef
}

// New builds a Firestore client from service-account credentials. When
// FIRESTORE_EMULATOR_HOST is set the client library talks to the emulator and
// ignores the credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	keyJSON, err := cfg.Credentials.JSON()
	if err != nil {
		return nil, err
	}
	client, err := gfirestore.NewClient(ctx, cfg.Credentials.ProjectID, option.WithCredentialsJSON(keyJSON))
	if err != nil {
		return nil, fmt.Errorf("firestore client init failed: %w", err)
	}
	return NewWithClient(client, cfg.Collection)
}

// NewWithClient wraps an existing client (primarily for emulator tests).
func NewWithClient(client *gfirestore.Client, collection string) (*Store, error) {
	if client == nil {
		return nil, errors.New("firestore client is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	return &Store{
		client: client,
		doc:    client.Collection(collection).Doc(progress.DocumentID),
	}, nil
}

// GetOrCreate reads the document and creates it when absent. Create fails with
// AlreadyExists if another request won the race, in which case the winner's
// document is read back.
func (s *Store) GetOrCreate(ctx context.Context) (progress.Document, error) {
	doc, err := s.read(ctx)
	if !errors.Is(err, progress.ErrNotFound) {
		return doc, err
	}
	_, err = s.doc.Create(ctx, map[string]any{
		"trauma":    0,
		"upper":     0,
		"lower":     0,
		"createdAt": gfirestore.ServerTimestamp,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return progress.Document{}, fmt.Errorf("create progress document: %w", err)
	}
	return s.read(ctx)
}

// Increment applies a server-side field transform, so concurrent increments
// are never lost. Update fails with NotFound when the document is missing.
func (s *Store) Increment(ctx context.Context, category progress.Category, delta float64) (progress.Document, error) {
	if _, err := progress.ParseCategory(string(category)); err != nil {
		return progress.Document{}, err
	}
	_, err := s.doc.Update(ctx, []gfirestore.Update{
		{Path: string(category), Value: gfirestore.Increment(delta)},
	})
	if err != nil {
		return progress.Document{}, fmt.Errorf("increment %s: %w", category, mapError(err))
	}
	return s.read(ctx)
}

// Reset overwrites the counters and stamps updatedAt with the server time.
func (s *Store) Reset(ctx context.Context) (progress.Document, error) {
	_, err := s.doc.Update(ctx, []gfirestore.Update{
		{Path: "trauma", Value: 0},
		{Path: "upper", Value: 0},
		{Path: "lower", Value: 0},
		{Path: "updatedAt", Value: gfirestore.ServerTimestamp},
	})
	if err != nil {
		return progress.Document{}, fmt.Errorf("reset progress: %w", mapError(err))
	}
	return s.read(ctx)
}

// Ping performs a document read; a missing document still proves connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.read(ctx); err != nil && !errors.Is(err, progress.ErrNotFound) {
		return err
	}
	return nil
}

// Close releases the client connection.
func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close firestore client: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context) (progress.Document, error) {
	snap, err := s.doc.Get(ctx)
	if err != nil {
		return progress.Document{}, fmt.Errorf("get progress document: %w", mapError(err))
	}
	doc, err := decodeDocument(snap.Data())
	if err != nil {
		return progress.Document{}, fmt.Errorf("decode progress document: %w", err)
	}
	return doc, nil
}

// decodeDocument maps raw Firestore fields onto a Document. Counters stored as
// integers become float64; unknown fields are carried in Extra.
func decodeDocument(data map[string]any) (progress.Document, error) {
	var doc progress.Document
	for key, raw := range data {
		var err error
		switch key {
		case "trauma":
			doc.Trauma, err = toFloat(key, raw)
		case "upper":
			doc.Upper, err = toFloat(key, raw)
		case "lower":
			doc.Lower, err = toFloat(key, raw)
		case "createdAt":
			doc.CreatedAt, err = toTime(key, raw)
		case "updatedAt":
			doc.UpdatedAt, err = toTime(key, raw)
		default:
			if doc.Extra == nil {
				doc.Extra = make(map[string]any)
			}
			doc.Extra[key] = raw
		}
		if err != nil {
			return progress.Document{}, err
		}
	}
	return doc, nil
}

func toFloat(key string, raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("field %q: unexpected type %T", key, raw)
	}
}

func toTime(key string, raw any) (*time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := v.UTC()
		return &t, nil
	default:
		return nil, fmt.Errorf("field %q: unexpected type %T", key, raw)
	}
}

func mapError(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %w", progress.ErrNotFound, err)
	}
	return err
}
