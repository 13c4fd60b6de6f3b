package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jsherman999/skillswap/internal/store"
)

// Source is the slice of the store an export reads from.
type Source interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*store.Profile, error)
	ListNotifications(ctx context.Context, me uuid.UUID, limit int) ([]store.Notification, error)
	ListUserMessages(ctx context.Context, me uuid.UUID, limit int) ([]store.Message, error)
}

type UserExport struct {
	ExportedAt    time.Time            `json:"exported_at"`
	Profile       *store.Profile       `json:"profile"`
	Messages      []store.Message      `json:"messages"`
	Notifications []store.Notification `json:"notifications"`
}

func ExportUserJSON(ctx context.Context, src Source, userID uuid.UUID, limit int, now time.Time) ([]byte, string, error) {
	p, err := src.GetProfile(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	msgs, err := src.ListUserMessages(ctx, userID, limit)
	if err != nil {
		return nil, "", err
	}
	notes, err := src.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, "", err
	}
	b, err := json.MarshalIndent(UserExport{ExportedAt: now.UTC(), Profile: p, Messages: msgs, Notifications: notes}, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return b, "application/json", nil
}

// ExportUserCSV writes the user's messages, oldest first, one row each.
func ExportUserCSV(ctx context.Context, src Source, userID uuid.UUID, limit int) ([]byte, string, error) {
	msgs, err := src.ListUserMessages(ctx, userID, limit)
	if err != nil {
		return nil, "", err
	}
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "direction", "peer_id", "content", "created_at", "read_at"})
	for _, m := range msgs {
		dir, peer := "sent", m.ReceiverID
		if m.ReceiverID == userID {
			dir, peer = "received", m.SenderID
		}
		read := ""
		if m.ReadAt != nil {
			read = m.ReadAt.UTC().Format(time.RFC3339)
		}
		_ = w.Write([]string{strconv.FormatInt(m.ID, 10), dir, peer.String(), m.Content, m.CreatedAt.UTC().Format(time.RFC3339), read})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), "text/csv", nil
}
