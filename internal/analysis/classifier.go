package analysis

import (
	"context"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// Classifier assigns an importance flag to a news/symbol link. Entries are
// stored with an UNKNOWN flag first; classification happens out of band and
// re-links never downgrade an existing verdict.
type Classifier interface {
	Classify(ctx context.Context, entry models.NewsEntry) (models.Importance, error)
}

// PendingClassifier is the default classifier: it defers every verdict,
// leaving entries UNKNOWN for the downstream batch consumer to judge.
type PendingClassifier struct{}

// NewPendingClassifier builds the deferring classifier.
func NewPendingClassifier() *PendingClassifier {
	return &PendingClassifier{}
}

// Classify always defers.
func (*PendingClassifier) Classify(ctx context.Context, entry models.NewsEntry) (models.Importance, error) {
	return models.ImportanceUnknown, nil
}
