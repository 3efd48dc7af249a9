// Package archive saves and reloads whole conversations, including the rows
// of every result table.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/query"
	"github.com/querydesk/querydesk/internal/storage"
)

var ErrNotFound = errors.New("conversation not found")

const maxTitleRunes = 60

type Manifest struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SavedAt   time.Time `json:"saved_at"`
	TurnCount int       `json:"turn_count"`
}

// transcript is the stored form. Table turns keep their query metadata here
// and point at a parquet object holding the rows.
type transcript struct {
	Manifest
	Turns []storedTurn `json:"turns"`
}

type storedTurn struct {
	Role        chat.Role `json:"role"`
	Kind        chat.Kind `json:"kind"`
	Text        string    `json:"text,omitempty"`
	Error       bool      `json:"error,omitempty"`
	Query       string    `json:"query,omitempty"`
	Columns     []string  `json:"columns,omitempty"`
	RowCount    int       `json:"row_count,omitempty"`
	TableObject string    `json:"table_object,omitempty"`
}

type Store struct {
	objects storage.ObjectStore
	now     func() time.Time
	logger  *slog.Logger
}

func NewStore(objects storage.ObjectStore, logger *slog.Logger) *Store {
	return &Store{
		objects: objects,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  observability.Component(logger, "archive"),
	}
}

// Save writes conv under its ID, assigning a new one when it has none. Saving
// the same conversation again replaces the transcript.
func (s *Store) Save(ctx context.Context, conv chat.Conversation) (Manifest, error) {
	manifest, err := s.save(ctx, conv)
	observability.ObserveArchive("save", err)
	if err != nil {
		return Manifest{}, err
	}
	s.logger.InfoContext(ctx, "conversation saved",
		slog.String("conversation_id", manifest.ID),
		slog.Int("turns", manifest.TurnCount),
	)
	return manifest, nil
}

func (s *Store) save(ctx context.Context, conv chat.Conversation) (Manifest, error) {
	if len(conv.Turns) == 0 {
		return Manifest{}, fmt.Errorf("conversation has no turns")
	}
	id := strings.TrimSpace(conv.ID)
	if id == "" {
		id = uuid.NewString()
	}
	transcriptKey, err := storage.TranscriptPath(id)
	if err != nil {
		return Manifest{}, err
	}

	doc := transcript{
		Manifest: Manifest{
			ID:        id,
			Title:     titleOf(conv),
			SavedAt:   s.now(),
			TurnCount: len(conv.Turns),
		},
		Turns: make([]storedTurn, 0, len(conv.Turns)),
	}
	for i, turn := range conv.Turns {
		stored := storedTurn{Role: turn.Role, Kind: turn.Kind, Text: turn.Text, Error: turn.Error}
		if turn.Kind == chat.KindTable && turn.Table != nil {
			key, err := s.putTable(ctx, id, i, *turn.Table)
			if err != nil {
				return Manifest{}, err
			}
			stored.Query = turn.Table.Query
			stored.Columns = turn.Table.Columns
			stored.RowCount = turn.Table.RowCount
			stored.TableObject = key
		}
		doc.Turns = append(doc.Turns, stored)
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode transcript: %w", err)
	}
	if _, err := s.objects.Put(ctx, transcriptKey, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "application/json"}); err != nil {
		return Manifest{}, fmt.Errorf("store transcript: %w", err)
	}
	return doc.Manifest, nil
}

func (s *Store) putTable(ctx context.Context, id string, turnIndex int, result query.Result) (string, error) {
	key, err := storage.TurnTablePath(id, turnIndex)
	if err != nil {
		return "", err
	}
	data, err := encodeTable(result)
	if err != nil {
		return "", fmt.Errorf("encode table for turn %d: %w", turnIndex, err)
	}
	if _, err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: "application/vnd.apache.parquet"}); err != nil {
		return "", fmt.Errorf("store table for turn %d: %w", turnIndex, err)
	}
	return key, nil
}

func (s *Store) Load(ctx context.Context, id string) (chat.Conversation, error) {
	conv, err := s.load(ctx, id)
	observability.ObserveArchive("load", err)
	return conv, err
}

func (s *Store) load(ctx context.Context, id string) (chat.Conversation, error) {
	doc, err := s.readTranscript(ctx, id)
	if err != nil {
		return chat.Conversation{}, err
	}

	conv := chat.Conversation{ID: doc.ID, Turns: make([]chat.Turn, 0, len(doc.Turns))}
	for i, stored := range doc.Turns {
		turn := chat.Turn{Role: stored.Role, Kind: stored.Kind, Text: stored.Text, Error: stored.Error}
		if stored.Kind == chat.KindTable {
			rows, err := s.getTable(ctx, stored.TableObject)
			if err != nil {
				return chat.Conversation{}, fmt.Errorf("load table for turn %d: %w", i, err)
			}
			turn.Table = &query.Result{
				Query:    stored.Query,
				Columns:  stored.Columns,
				RowCount: len(rows),
				Rows:     rows,
			}
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return conv, nil
}

func (s *Store) getTable(ctx context.Context, key string) ([]query.Row, error) {
	if key == "" {
		return []query.Row{}, nil
	}
	data, err := s.readObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeTable(data)
}

// List returns every archived conversation, most recently saved first.
func (s *Store) List(ctx context.Context) ([]Manifest, error) {
	manifests, err := s.list(ctx)
	observability.ObserveArchive("list", err)
	return manifests, err
}

func (s *Store) list(ctx context.Context) ([]Manifest, error) {
	objects, err := s.objects.List(ctx, storage.ConversationsPrefix())
	if err != nil {
		return nil, fmt.Errorf("list archived conversations: %w", err)
	}

	manifests := make([]Manifest, 0)
	for _, object := range objects {
		id, ok := storage.ConversationIDFromTranscript(object.Key)
		if !ok {
			continue
		}
		doc, err := s.readTranscript(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			s.logger.WarnContext(ctx, "skip unreadable transcript",
				slog.String("conversation_id", id),
				slog.Any("error", err),
			)
			continue
		}
		manifests = append(manifests, doc.Manifest)
	}
	sort.SliceStable(manifests, func(i, j int) bool {
		return manifests[i].SavedAt.After(manifests[j].SavedAt)
	})
	return manifests, nil
}

func (s *Store) readTranscript(ctx context.Context, id string) (transcript, error) {
	key, err := storage.TranscriptPath(strings.TrimSpace(id))
	if err != nil {
		return transcript{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	data, err := s.readObject(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return transcript{}, ErrNotFound
		}
		return transcript{}, err
	}
	var doc transcript
	if err := json.Unmarshal(data, &doc); err != nil {
		return transcript{}, fmt.Errorf("decode transcript %q: %w", key, err)
	}
	return doc, nil
}

func (s *Store) readObject(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.objects.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

func titleOf(conv chat.Conversation) string {
	for _, turn := range conv.Turns {
		if turn.Role != chat.RoleUser || strings.TrimSpace(turn.Text) == "" {
			continue
		}
		title := strings.Join(strings.Fields(turn.Text), " ")
		if utf8.RuneCountInString(title) > maxTitleRunes {
			runes := []rune(title)
			title = string(runes[:maxTitleRunes-3]) + "..."
		}
		return title
	}
	return "Untitled conversation"
}
