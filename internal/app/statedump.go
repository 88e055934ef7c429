package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DumpState writes the current dedup state document as indented JSON.
func (a *App) DumpState(ctx context.Context, w io.Writer) error {
	doc := a.newStateFile().Load(ctx)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}

// ListRecentAlerts prints the latest audit rows, newest first.
func (a *App) ListRecentAlerts(ctx context.Context, w io.Writer, limit int) error {
	store, closeStore, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("database.dsn not configured")
	}
	defer closeStore()

	records, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Fprintf(w, "%s  [%s] %s  severity=%.2f\n%s\n\n",
			rec.FiredAt.Local().Format("2006-01-02 15:04"),
			rec.Category, rec.SignalKey, rec.Severity, rec.Message)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "（无记录）")
	}
	return nil
}

// PruneAlerts deletes audit rows older than the retention window.
func (a *App) PruneAlerts(ctx context.Context, w io.Writer, olderThan time.Duration) error {
	if olderThan <= 0 {
		return fmt.Errorf("保留窗口必须为正值, 实际 %v", olderThan)
	}

	store, closeStore, err := a.openHistory(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("database.dsn not configured")
	}
	defer closeStore()

	cutoff := time.Now().Add(-olderThan)
	if err := store.DeleteAlertsBefore(ctx, cutoff); err != nil {
		return err
	}

	fmt.Fprintf(w, "已清理 %s 之前的审计记录\n", cutoff.Local().Format("2006-01-02 15:04"))
	return nil
}
