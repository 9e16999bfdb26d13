package service

import (
	"context"
	"strings"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/internal/repository/database"
)

type HistoryService struct {
	repo database.DocumentRepository
	root string
}

func NewHistoryService(repo database.DocumentRepository, storageRoot string) *HistoryService {
	return &HistoryService{repo: repo, root: storageRoot}
}

// GetDay returns the day summary and its minute entries in time order.
func (s *HistoryService) GetDay(ctx context.Context, query *domain.DayQuery) (*domain.DayHistory, error) {
	if query.UserID == "" {
		return nil, domain.ErrMissingIdentity
	}
	dayPath := domain.DayPath(s.root, query.UserID, query.Date)

	summary, err := s.repo.Get(ctx, dayPath)
	if err != nil {
		return nil, err
	}
	children, err := s.repo.Children(ctx, dayPath)
	if err != nil {
		return nil, err
	}

	day := &domain.DayHistory{
		UserID:               query.UserID,
		Date:                 query.Date.Format(domain.DateLayout),
		TotalCoveredDistance: numberField(summary.Body, domain.FieldTotalDistance),
		LastUpdateTime:       stringField(summary.Body, domain.FieldLastUpdate),
		Minutes:              make([]domain.MinuteEntry, 0, len(children)),
	}
	for _, doc := range children {
		day.Minutes = append(day.Minutes, domain.MinuteEntry{
			Time:      doc.Path[strings.LastIndex(doc.Path, "/")+1:],
			DistanceM: numberField(doc.Body, domain.FieldMinuteDistance),
			Path:      domain.DecodePath(stringField(doc.Body, domain.FieldMinutePath)),
		})
	}
	return day, nil
}

func numberField(body map[string]any, key string) float64 {
	if v, ok := body[key].(float64); ok {
		return v
	}
	return 0
}

func stringField(body map[string]any, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}
