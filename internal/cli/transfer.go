package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/export"
)

// Export writes one note ("all" for every note) as Markdown with YAML
// frontmatter into the export directory.
func (a *App) Export(ctx context.Context) error {
	if err := a.ensureUnlocked(); err != nil {
		return err
	}

	id, err := GetSimpleText(a.reader, "Note ID ('all' for every note)", os.Stdout)
	if err != nil {
		return err
	}

	var ids []string
	if id == "all" {
		summaries, err := a.store.List(ctx)
		if err != nil {
			printlnFn(errFmt(err.Error()))
			return err
		}
		for _, s := range summaries {
			ids = append(ids, s.ID)
		}
	} else {
		ids = []string{id}
	}

	for _, noteID := range ids {
		n, err := a.store.Read(ctx, noteID)
		if err != nil {
			printlnFn(errFmt(err.Error()))
			return err
		}
		path, err := export.WriteFile(a.config.ExportDir, n)
		if err != nil {
			printlnFn(errFmt("Export failed: " + err.Error()))
			return err
		}
		printlnFn(okFmt("Exported ") + titleFmt(n.Title) + dimFmt(" -> "+path))
	}
	return nil
}

// Backup uploads the container file to object storage.
func (a *App) Backup(ctx context.Context) error {
	key, err := a.backup.Backup(ctx, a.config.ContainerPath())
	if err != nil {
		printlnFn(errFmt("Backup failed: " + err.Error()))
		return err
	}
	printlnFn(okFmt("Backed up as ") + key)
	return nil
}

// Restore downloads a container snapshot over the local container. The
// vault must be locked so the running store is not pulled out from under us.
func (a *App) Restore(ctx context.Context) error {
	if a.isUnlocked() {
		printlnFn("Lock the vault before restoring")
		return nil
	}

	key, err := GetSimpleText(a.reader, "Backup key", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.backup.Restore(ctx, key, a.config.ContainerPath()); err != nil {
		printlnFn(errFmt("Restore failed: " + err.Error()))
		return err
	}
	printlnFn(okFmt("Container restored; unlock to open it"))
	return nil
}
