package main

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/user"
)

var errImportFailed = errors.New("import failed, nothing written")

// importFile validates then, unless dryRun, commits the spreadsheet at path.
// The validate or commit response is printed as JSON.
func (cli *commandLine) importFile(path string, dryRun bool) error {
	data, err := readFileFunc(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if max := cli.importSvc.MaxFileSize(); int64(len(data)) > max {
		return &importer.FileTooLargeError{Size: int64(len(data)), Max: max}
	}
	fi := importer.FileInfo{Name: filepath.Base(path), Data: data}

	vresp, err := cli.importSvc.Validate(fi)
	if err != nil {
		return err
	}
	if !vresp.OK || dryRun {
		if err = cli.printJSON(vresp); err != nil {
			return err
		}
		if !vresp.OK {
			return &importer.InvalidFileError{Errors: vresp.Errors}
		}
		return nil
	}

	cresp, err := cli.importSvc.Commit(context.Background(), fi, user.User{})
	if err != nil {
		return err
	}
	if err = cli.printJSON(cresp); err != nil {
		return err
	}
	if !cresp.OK {
		return errImportFailed
	}
	return nil
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding result")
}
