package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/Dosada05/tournament-engine/storage"
	"github.com/gosimple/slug"
)

const archiveTimeout = 30 * time.Second

// StandingsArchiver выгружает итоговую таблицу завершенного турнира в хранилище.
type StandingsArchiver struct {
	uploader storage.FileUploader
}

func NewStandingsArchiver(uploader storage.FileUploader) *StandingsArchiver {
	return &StandingsArchiver{uploader: uploader}
}

type standingsDocument struct {
	Tournament *models.Tournament `json:"tournament"`
	Standings  []models.Standing  `json:"standings"`
	Matches    []*models.Match    `json:"matches"`
	ArchivedAt time.Time          `json:"archived_at"`
}

// ArchiveKey - ключ объекта с итогами турнира.
func ArchiveKey(t *models.Tournament) string {
	return fmt.Sprintf("standings/%s-%s.json", slug.Make(t.Name), t.ID)
}

func (a *StandingsArchiver) Archive(ctx context.Context, t *models.Tournament, contestants []*models.Contestant, matches []*models.Match) (*storage.UploadResult, error) {
	body, err := json.MarshalIndent(standingsDocument{
		Tournament: t,
		Standings:  models.BuildStandings(contestants),
		Matches:    matches,
		ArchivedAt: time.Now().UTC(),
	}, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode standings: %w", err)
	}
	return a.uploader.Upload(ctx, ArchiveKey(t), "application/json", bytes.NewReader(body))
}

// archiveStandings выполняется после коммита; ошибки только логируются,
// так как результат турнира уже сохранен.
func (c *core) archiveStandings(ctx context.Context, t *models.Tournament) {
	if c.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	log := c.logger.With(slog.String("tournament_id", t.ID.String()))
	contestants, err := c.contestants.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		log.ErrorContext(ctx, "failed to load contestants for archive", slog.Any("error", err))
		return
	}
	matches, err := c.matches.ListByTournament(ctx, nil, t.ID)
	if err != nil {
		log.ErrorContext(ctx, "failed to load matches for archive", slog.Any("error", err))
		return
	}

	result, err := c.archiver.Archive(ctx, t, contestants, matches)
	if err != nil {
		log.ErrorContext(ctx, "failed to archive standings", slog.Any("error", err))
		return
	}
	log.InfoContext(ctx, "standings archived", slog.String("key", result.Key), slog.String("location", result.Location))
}
