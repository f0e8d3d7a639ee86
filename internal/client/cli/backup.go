package cli

import (
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/authigel/internal/client/models"
	"github.com/dmitrijs2005/authigel/internal/client/services"
	"github.com/dmitrijs2005/authigel/internal/common"
)

var errPasswordMismatch = errors.New("passwords do not match")

func (a *App) SetPassword(ctx context.Context) error {
	pw, err := GetPassword(a.out, "New backup password")
	if err != nil {
		return a.fail(ctx, "setpassword", err)
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword(a.out, "Repeat password")
	if err != nil {
		return a.fail(ctx, "setpassword", err)
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return a.fail(ctx, "setpassword", errPasswordMismatch)
	}

	if err := a.backups.SetPassword(ctx, bytes.Clone(pw)); err != nil {
		return a.fail(ctx, "setpassword", err)
	}
	a.printf("Backup password saved.\n")
	return nil
}

func (a *App) ClearPassword(ctx context.Context) error {
	if err := a.backups.ClearPassword(ctx); err != nil {
		return a.fail(ctx, "clearpassword", err)
	}
	a.printf("Backup password cleared.\n")
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	res, err := a.backups.RunNow(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNoPasswordConfigured) {
			a.printf("Set a backup password first (setpassword).\n")
		}
		return a.fail(ctx, "backup", err)
	}
	a.printResult(res)
	return nil
}

// Restore asks for the backup password; an empty answer uses the stored
// one. Without a path the most recent backup is restored.
func (a *App) Restore(ctx context.Context, path string) error {
	pw, err := GetPassword(a.out, "Backup password (empty to use the stored one)")
	if err != nil {
		return a.fail(ctx, "restore", err)
	}
	if len(pw) == 0 {
		pw = nil
	}

	var rep services.ImportReport
	if path == "" {
		rep, err = a.backups.RestoreLatest(ctx, pw)
	} else {
		f, openErr := os.Open(path)
		if openErr != nil {
			common.WipeByteArray(pw)
			return a.fail(ctx, "restore", openErr)
		}
		rep, err = a.backups.Restore(ctx, f, pw)
		_ = f.Close()
	}
	if err != nil {
		return a.fail(ctx, "restore", err)
	}

	a.printReport("Restored", rep)
	return nil
}

// Frequency shows the schedule, or sets it when spec is given. Choosing
// "once" takes the single backup right away.
func (a *App) Frequency(ctx context.Context, spec string) error {
	if spec == "" {
		f, err := a.backups.Frequency(ctx)
		if err != nil {
			return a.fail(ctx, "frequency", err)
		}
		a.printf("Automatic backup: %s\n", f)
		return nil
	}

	f, err := models.ParseFrequency(spec)
	if err != nil {
		return a.fail(ctx, "frequency", err)
	}
	if err := a.backups.SetFrequency(ctx, f); err != nil {
		return a.fail(ctx, "frequency", err)
	}
	a.printf("Automatic backup: %s\n", f)

	if f.Mode == models.FrequencyOnce {
		return a.Backup(ctx)
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	f, err := a.backups.Frequency(ctx)
	if err != nil {
		return a.fail(ctx, "status", err)
	}
	hasPw, err := a.backups.HasPassword(ctx)
	if err != nil {
		return a.fail(ctx, "status", err)
	}
	last, ok, err := a.backups.LastBackup(ctx)
	if err != nil {
		return a.fail(ctx, "status", err)
	}

	a.printf("Destination:      %s\n", a.destination)
	a.printf("Automatic backup: %s\n", f)
	a.printf("Password set:     %t\n", hasPw)
	if ok {
		a.printf("Last backup:      %s (%s)\n", last.At.Format("2006-01-02 15:04:05"), last.Location)
	} else {
		a.printf("Last backup:      never\n")
	}
	return nil
}

func (a *App) printResult(res services.Result) {
	switch res.Outcome {
	case services.OutcomeSucceeded:
		a.printf("Backup of %d record(s) written to %s\n", res.Records, res.Location)
		for _, p := range res.Pruned {
			a.printf("  removed old backup %s\n", p)
		}
	default:
		a.printf("Backup %s\n", res.Outcome)
	}
}
