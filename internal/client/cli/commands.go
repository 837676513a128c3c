package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
)

// getNewPassword is a test seam for GetNewPassword.
var getNewPassword = GetNewPassword

// WalletNew creates an encrypted keyfile at the configured path. An existing
// keyfile is only replaced when force is set.
func (a *App) WalletNew(ctx context.Context, force bool) error {
	path := a.config.WalletPath
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: wallet already exists at %s, use --force to replace it", common.ErrPreconditionFailed, path)
	}

	pass, err := getNewPassword(a.out)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}
	defer common.WipeByteArray(pass)

	w, err := wallet.Generate()
	if err != nil {
		return err
	}

	if err := wallet.Save(path, w, pass); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	a.ok("wallet %s saved to %s", w.Address(), path)
	return nil
}

// WalletShow prints the address of the keyfile and its ledger balance. The
// keyfile is not decrypted.
func (a *App) WalletShow(ctx context.Context) error {
	address, err := wallet.PeekAddress(a.config.WalletPath)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}
	fmt.Fprintf(a.out, "address: %s\n", address)

	balance, err := a.orch.Balance(ctx, address)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "balance: %d\n", balance)
	return nil
}

func (a *App) Connect(ctx context.Context) error {
	if err := a.unlock(); err != nil {
		return err
	}
	if err := a.orch.Connect(ctx, a.sess); err != nil {
		return err
	}
	a.ok("connected as %s", a.sess.Address())
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isConnected() {
		a.ok("not connected")
		return nil
	}
	if err := a.orch.Logout(ctx, a.sess); err != nil {
		return err
	}
	a.ok("logged out")
	return nil
}

// Upload stores path and waits until its ledger record is final.
func (a *App) Upload(ctx context.Context, path string) error {
	if err := a.ensureConnected(ctx); err != nil {
		return err
	}

	stop := a.spin("uploading " + filepath.Base(path))
	rec, err := a.orch.Upload(ctx, a.sess, path)
	stop()
	if err != nil {
		return err
	}

	a.ok("%s registered as #%d (%s)", rec.Filename, rec.Index, rec.FileHash)
	return nil
}

// List reads all records from the ledger and prints them as a table.
func (a *App) List(ctx context.Context) error {
	stop := a.spin("reading ledger")
	files, err := a.orch.Refresh(ctx, a.sess)
	stop()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		fmt.Fprintln(a.out, "no files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tFILENAME\tHASH\tUPLOADER")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.Index, f.Filename, f.FileHash, f.Uploader)
	}
	return tw.Flush()
}

// Download fetches record index into dir, or the configured download
// directory when dir is empty.
func (a *App) Download(ctx context.Context, index uint64, dir string) error {
	if dir == "" {
		dir = a.config.DownloadDir
	}
	if err := a.ensureConnected(ctx); err != nil {
		return err
	}
	if len(a.sess.Files()) == 0 {
		if _, err := a.orch.Refresh(ctx, a.sess); err != nil {
			return err
		}
	}

	stop := a.spin(fmt.Sprintf("downloading #%d", index))
	path, err := a.orch.Download(ctx, a.sess, index, dir)
	stop()
	if err != nil {
		return err
	}

	a.ok("saved to %s", path)
	return nil
}

// Grant lets grantee download record index.
func (a *App) Grant(ctx context.Context, index uint64, grantee string) error {
	if err := a.unlock(); err != nil {
		return err
	}

	stop := a.spin(fmt.Sprintf("granting #%d", index))
	err := a.orch.Grant(ctx, a.sess, index, grantee)
	stop()
	if err != nil {
		return err
	}

	a.ok("%s may download #%d", grantee, index)
	return nil
}
