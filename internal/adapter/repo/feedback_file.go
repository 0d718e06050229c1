package repo

import (
	"context"

	"lifelink/internal/domain"
	"lifelink/internal/storage"
)

// FeedbackFileName is the key of the feedback document inside the data directory.
const FeedbackFileName = "feedback.json"

type feedbackDocument struct {
	Entries []domain.Feedback `json:"entries"`
}

// FeedbackFile implements domain.FeedbackStore on a JSON file.
type FeedbackFile struct {
	doc *storage.JSONDocument[feedbackDocument]
}

// NewFeedbackFile opens the feedback file in fs.
func NewFeedbackFile(fs *storage.FileStore) (*FeedbackFile, error) {
	doc, err := storage.OpenJSONDocument(fs, FeedbackFileName, func() *feedbackDocument {
		return &feedbackDocument{Entries: []domain.Feedback{}}
	})
	if err != nil {
		return nil, err
	}
	return &FeedbackFile{doc: doc}, nil
}

func (f *FeedbackFile) Create(ctx context.Context, fb *domain.Feedback) error {
	return f.doc.Update(ctx, func(d *feedbackDocument) error {
		d.Entries = append(d.Entries, *fb)
		return nil
	})
}

func (f *FeedbackFile) List(ctx context.Context) ([]domain.Feedback, error) {
	var out []domain.Feedback
	err := f.doc.View(ctx, func(d *feedbackDocument) {
		out = append([]domain.Feedback{}, d.Entries...)
	})
	return out, err
}

// Close stops the writer.
func (f *FeedbackFile) Close() error {
	return f.doc.Close()
}
