package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/authigel/internal/base32x"
	"github.com/dmitrijs2005/authigel/internal/client/services"
	"github.com/dmitrijs2005/authigel/internal/common"
	"github.com/dmitrijs2005/authigel/internal/filex"
)

// newSecretSize is the length in bytes of generated secrets.
const newSecretSize = 20

func (a *App) List(ctx context.Context) error {
	recs, err := a.records.List(ctx)
	if err != nil {
		return a.fail(ctx, "list", err)
	}
	if len(recs) == 0 {
		a.printf("No records.\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tISSUER\tACCOUNT\tADDED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Issuer, r.Holder, r.AddedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func (a *App) Codes(ctx context.Context) error {
	codes, err := a.records.Codes(ctx)
	if err != nil {
		return a.fail(ctx, "codes", err)
	}
	if len(codes) == 0 {
		a.printf("No records.\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, c := range codes {
		if c.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\t(error: %v)\n", c.Record.ID, c.Record.Label(), c.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%ds\n", c.Record.ID, c.Record.Label(), c.Code.Value, int(c.Code.Remaining.Seconds()))
	}
	return tw.Flush()
}

func (a *App) Add(ctx context.Context) error {
	issuer, err := GetSimpleText(a.reader, "Issuer", a.out)
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	holder, err := GetSimpleText(a.reader, "Account (optional)", a.out)
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	secret, err := GetSimpleText(a.reader, "Secret (Base32, empty to generate one)", a.out)
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	if secret == "" {
		if secret, err = base32x.RandomSecret(newSecretSize); err != nil {
			return a.fail(ctx, "add", err)
		}
		a.printf("Generated secret: %s\n", secret)
	}

	rec, err := a.records.Add(ctx, issuer, holder, secret)
	if err != nil {
		return a.fail(ctx, "add", err)
	}
	a.printf("Added %s (%s)\n", rec.Label(), rec.ID)
	return nil
}

func (a *App) AddURI(ctx context.Context, uri string) error {
	rec, err := a.records.AddURI(ctx, uri)
	if err != nil {
		return a.fail(ctx, "adduri", err)
	}
	a.printf("Added %s (%s)\n", rec.Label(), rec.ID)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.records.Delete(ctx, id); err != nil {
		return a.fail(ctx, "delete", err)
	}
	a.printf("Deleted %s\n", id)
	return nil
}

// Export writes the plain-text export to path, or to the terminal when path
// is empty. The file is created with owner-only permissions.
func (a *App) Export(ctx context.Context, path string) error {
	if path == "" {
		n, err := a.records.Export(ctx, a.out)
		if err != nil {
			return a.fail(ctx, "export", err)
		}
		a.printf("\n%d record(s) exported\n", n)
		return nil
	}

	var buf bytes.Buffer
	n, err := a.records.Export(ctx, &buf)
	defer common.WipeByteArray(buf.Bytes())
	if err != nil {
		return a.fail(ctx, "export", err)
	}
	if err := filex.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return a.fail(ctx, "export", err)
	}
	a.printf("%d record(s) exported to %s\n", n, path)
	return nil
}

// Import reads otpauth URIs from path, or from pasted lines when path is
// empty.
func (a *App) Import(ctx context.Context, path string) error {
	var data []byte
	if path == "" {
		text, err := GetMultiline(a.reader, "Paste otpauth URIs, one per line", a.out)
		if err != nil {
			return a.fail(ctx, "import", err)
		}
		data = []byte(text)
	} else {
		b, err := os.ReadFile(path)
		if err != nil {
			return a.fail(ctx, "import", err)
		}
		data = b
	}
	defer common.WipeByteArray(data)

	rep, err := a.records.Import(ctx, bytes.NewReader(data))
	if err != nil {
		return a.fail(ctx, "import", err)
	}
	a.printReport("Imported", rep)
	return nil
}

func (a *App) QR(ctx context.Context, id, path string) error {
	var buf bytes.Buffer
	if err := a.records.WriteQR(ctx, id, services.DefaultQRSize, &buf); err != nil {
		return a.fail(ctx, "qr", err)
	}
	if err := filex.WriteFileAtomic(path, buf.Bytes(), 0o600); err != nil {
		return a.fail(ctx, "qr", err)
	}
	a.printf("QR code written to %s\n", path)
	return nil
}

func (a *App) printReport(verb string, rep services.ImportReport) {
	a.printf("%s %d of %d record(s)\n", verb, rep.Added, rep.Total)
	if len(rep.Failures) == 0 {
		return
	}
	lines := make([]string, 0, len(rep.Failures))
	for _, f := range rep.Failures {
		lines = append(lines, "  "+f.Error())
	}
	a.printf("Skipped:\n%s\n", strings.Join(lines, "\n"))
}
