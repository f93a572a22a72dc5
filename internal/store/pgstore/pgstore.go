// Package pgstore implements store.Store on PostgreSQL through gorm.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/store"
)

type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func Open(opts Options, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.AutoMigrate(
		&SessionRow{},
		&GameRow{},
		&ActionRow{},
		&UnavailableChampionRow{},
		&ParticipantRow{},
		&MessageRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("connected to database", zap.Int("max_open_conns", opts.MaxOpenConns))
	return New(db), nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *Store) CreateSession(ctx context.Context, sess engine.Session) error {
	row := toSessionRow(sess)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", sess.ID, store.ErrConflict)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (engine.Session, error) {
	var row SessionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return engine.Session{}, notFound(err, "session "+id)
	}
	return row.toEngine(), nil
}

func (s *Store) GetSessionByInvite(ctx context.Context, token string) (engine.Session, error) {
	var row SessionRow
	if err := s.db.WithContext(ctx).First(&row, "invite_token = ?", token).Error; err != nil {
		return engine.Session{}, notFound(err, "invite "+token)
	}
	return row.toEngine(), nil
}

func (s *Store) UpdateSession(ctx context.Context, sess engine.Session) (engine.Session, error) {
	cols := sessionColumns(toSessionRow(sess))
	cols["version"] = gorm.Expr("version + 1")
	res := s.db.WithContext(ctx).Model(&SessionRow{}).
		Where("id = ? AND version = ?", sess.ID, sess.Version).
		Updates(cols)
	if res.Error != nil {
		return sess, fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		cur, err := s.GetSession(ctx, sess.ID)
		if err != nil {
			return sess, err
		}
		return cur, engine.ErrStaleWrite
	}
	sess.Version++
	return sess, nil
}

func (s *Store) CreateGame(ctx context.Context, g engine.Game) error {
	row, err := toGameRow(g)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("game %d of session %s: %w", g.Number, g.SessionID, store.ErrConflict)
		}
		return fmt.Errorf("create game: %w", err)
	}
	return nil
}

func (s *Store) GetGame(ctx context.Context, id string) (engine.Game, error) {
	var row GameRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return engine.Game{}, notFound(err, "game "+id)
	}
	return row.toEngine()
}

func (s *Store) GetGameByNumber(ctx context.Context, sessionID string, number int) (engine.Game, error) {
	var row GameRow
	err := s.db.WithContext(ctx).
		Where("session_id = ? AND game_number = ?", sessionID, number).
		First(&row).Error
	if err != nil {
		return engine.Game{}, notFound(err, fmt.Sprintf("game %d of session %s", number, sessionID))
	}
	return row.toEngine()
}

func (s *Store) ListGames(ctx context.Context, sessionID string) ([]engine.Game, error) {
	var rows []GameRow
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("game_number ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return decodeGames(rows)
}

func (s *Store) ListDraftingGames(ctx context.Context) ([]engine.Game, error) {
	var rows []GameRow
	live := []string{string(engine.SessionInProgress), string(engine.SessionPaused)}
	err := s.db.WithContext(ctx).
		Joins("JOIN draft_sessions ON draft_sessions.id = draft_games.session_id").
		Where("draft_games.status = ? AND draft_sessions.status IN ?", string(engine.GameDrafting), live).
		Order("draft_games.id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list drafting games: %w", err)
	}
	return decodeGames(rows)
}

func decodeGames(rows []GameRow) ([]engine.Game, error) {
	out := make([]engine.Game, 0, len(rows))
	for _, r := range rows {
		g, err := r.toEngine()
		if err != nil {
			return nil, fmt.Errorf("decode game %s: %w", r.ID, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) UpdateGame(ctx context.Context, g engine.Game) (engine.Game, error) {
	row, err := toGameRow(g)
	if err != nil {
		return g, fmt.Errorf("encode game: %w", err)
	}
	cols := gameColumns(row)
	cols["version"] = gorm.Expr("version + 1")

	res := s.db.WithContext(ctx).Model(&GameRow{}).
		Where("id = ? AND version = ?", g.ID, g.Version).
		Updates(cols)
	if res.Error != nil {
		return g, fmt.Errorf("update game: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		cur, err := s.GetGame(ctx, g.ID)
		if err != nil {
			return g, err
		}
		return cur, engine.ErrStaleWrite
	}
	g.Version++
	return g, nil
}

// CommitAction is the turn-advancing compare-and-swap on current_action_index.
func (s *Store) CommitAction(ctx context.Context, g engine.Game, a engine.ActionRecord) (engine.Game, error) {
	row, err := toGameRow(g)
	if err != nil {
		return g, fmt.Errorf("encode game: %w", err)
	}
	cols := gameColumns(row)
	cols["version"] = gorm.Expr("version + 1")
	action := toActionRow(a)

	var committed engine.Game
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&GameRow{}).
			Where("id = ? AND status = ? AND current_action_index = ?", g.ID, string(engine.GameDrafting), a.Index).
			Updates(cols)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return engine.ErrStaleWrite
		}
		if err := tx.Create(&action).Error; err != nil {
			if isUniqueViolation(err) {
				return engine.ErrSlotAlreadyFilled
			}
			return err
		}
		var fresh GameRow
		if err := tx.First(&fresh, "id = ?", g.ID).Error; err != nil {
			return err
		}
		c, decErr := fresh.toEngine()
		committed = c
		return decErr
	})
	if err != nil {
		if engine.IsRace(err) {
			cur, getErr := s.GetGame(ctx, g.ID)
			if getErr != nil {
				return g, getErr
			}
			return cur, err
		}
		return g, fmt.Errorf("commit action %d of game %s: %w", a.Index, g.ID, err)
	}
	return committed, nil
}

func (s *Store) ListActions(ctx context.Context, gameID string) ([]engine.ActionRecord, error) {
	var rows []ActionRow
	if err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("action_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	out := make([]engine.ActionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEngine())
	}
	return out, nil
}

func (s *Store) AppendUnavailable(ctx context.Context, recs []engine.UnavailableChampion) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([]UnavailableChampionRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, toUnavailableRow(r))
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("append unavailable champions: %w", err)
	}
	return nil
}

func (s *Store) ListUnavailable(ctx context.Context, sessionID string) ([]engine.UnavailableChampion, error) {
	var rows []UnavailableChampionRow
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("game_number ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list unavailable champions: %w", err)
	}
	out := make([]engine.UnavailableChampion, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEngine())
	}
	return out, nil
}

func (s *Store) UpsertParticipant(ctx context.Context, p store.Participant) error {
	row := toParticipantRow(p)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, id string) (store.Participant, error) {
	var row ParticipantRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return store.Participant{}, notFound(err, "participant "+id)
	}
	return row.toStore(), nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]store.Participant, error) {
	var rows []ParticipantRow
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("joined_at ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]store.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toStore())
	}
	return out, nil
}

func (s *Store) AppendMessage(ctx context.Context, m store.Message) error {
	row := toMessageRow(m)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []MessageRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]store.Message, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r.toStore()
	}
	return out, nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
