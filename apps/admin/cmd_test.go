package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/catalog"
	"github.com/trezcool/simcatalog/core/importer"
	"github.com/trezcool/simcatalog/core/roadmap"
	"github.com/trezcool/simcatalog/core/user"
	inmemdb "github.com/trezcool/simcatalog/storage/database/inmem"
	testutil "github.com/trezcool/simcatalog/tests"
)

const strongPwd = "S3cure!Pass#2024"

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testCLI struct {
	*commandLine
	catRepo catalog.Repository
}

func setup(t *testing.T) testCLI {
	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	catRepo := inmemdb.NewCatalogRepository(db)
	conf := &core.Config{AppName: "Simcatalog", Import: core.ImportConfig{MaxFileSize: 1 << 20, SampleSize: 5}}

	origReadPassword, origReadFile, origGooseRun := readPasswordFunc, readFileFunc, gooseRunFunc
	t.Cleanup(func() {
		readPasswordFunc, readFileFunc, gooseRunFunc = origReadPassword, origReadFile, origGooseRun
	})

	// start CLI
	return testCLI{
		commandLine: &commandLine{
			usrRepo:    usrRepo,
			usrSvc:     user.NewService(usrRepo),
			catalogSvc: catalog.NewService(catRepo),
			roadmapSvc: roadmap.NewService(inmemdb.NewRoadmapRepository(db), catRepo),
			importSvc:  importer.NewService(inmemdb.NewImportRepository(db), nil, nopLogger{}, conf),
			out:        new(bytes.Buffer),
		},
		catRepo: catRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != "migrations" {
			return fmt.Errorf("unexpected dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "attachments", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"adduser", "-name", "Ana", "-email", "ana@test.cd"}, wantErr: errHelp},
		{
			name: "unknown role", args: []string{"adduser", "-name", "Ana", "-email", "ana@test.cd", "-role", "root"},
			extra: extra{pwd: strongPwd}, wantErr: errUnknownRole,
		},
		{
			name: "weak password", args: []string{"adduser", "-name", "Ana", "-email", "ana@test.cd"},
			extra: extra{pwd: "password"}, wantErrStr: "password",
		},
		{name: "create", args: []string{"adduser", "-name", "Ana", "-email", " Ana@Test.cd "}, extra: extra{pwd: strongPwd}},
		{
			name: "update", args: []string{"adduser", "-name", "Ana Maria", "-email", "ana@test.cd", "-role", "editor"},
			extra: extra{pwd: strongPwd + "!"},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErrStr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
				return
			}
			checkErr(t, tt, err)
		})
	}

	usrs, err := cli.usrRepo.FilterUsers(context.Background(), user.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, usrs, 1)
	assert.Equal(t, "ana@test.cd", usrs[0].Email)
	assert.Equal(t, "Ana Maria", usrs[0].Name)
	assert.Equal(t, user.RoleEditor, usrs[0].Role)
	assert.NoError(t, usrs[0].CheckPassword(strongPwd+"!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe@test.cd", strongPwd, user.RoleViewer)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: extra{pwd: "N3w!Secret#2024"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := cli.usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_import(t *testing.T) {
	cli := setup(t)

	files := map[string]string{
		"catalogo.csv": "Grupo,Área,Subárea,Disciplina,CodigoDisciplina,CargaHoraria\n" +
			"Saúde,Medicina,Cardiologia,ECG Básico,MED-001,40\n",
		"invalido.csv": "Grupo,Área,Subárea,Disciplina,CodigoDisciplina,CargaHoraria\n" +
			"Saúde,Medicina,,ECG Básico,MED-001,40\n",
	}
	readFileFunc = func(name string) ([]byte, error) {
		if name == "grande.csv" {
			return bytes.Repeat([]byte("a"), 2<<20), nil
		}
		if data, ok := files[name]; ok {
			return []byte(data), nil
		}
		return nil, os.ErrNotExist
	}
	countGroups := func(t *testing.T) int {
		groups, err := cli.catRepo.QueryGroups(context.Background())
		require.NoError(t, err)
		return len(groups)
	}

	tests := []cliTest{
		{name: "no file", args: []string{"import"}, wantErr: errHelp},
		{name: "missing file", args: []string{"import", "-file", "nope.csv"}, wantErrStr: "reading nope.csv: file does not exist"},
		{name: "too large", args: []string{"import", "-file", "grande.csv"}, wantErrStr: "Arquivo muito grande. Tamanho máximo permitido: 1MB"},
		{name: "invalid", args: []string{"import", "-file", "invalido.csv"}, wantErrStr: "Arquivo contém erros de validação"},
		{name: "dry run", args: []string{"import", "-file", "catalogo.csv", "-dry-run"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
			assert.Zero(t, countGroups(t))
		})
	}

	t.Run("dry run prints the preview", func(t *testing.T) {
		out := new(bytes.Buffer)
		cli.out = out
		require.NoError(t, cli.run([]string{"admin", "import", "-file", "catalogo.csv", "-dry-run"}))

		var resp importer.ValidateResponse
		require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
		assert.True(t, resp.OK)
		assert.Equal(t, importer.Totals{Rows: 1, Grupos: 1, Areas: 1, Subareas: 1, Disciplinas: 1}, resp.Totals)
	})

	t.Run("commit", func(t *testing.T) {
		for _, wantInserted := range []int{1, 0} {
			out := new(bytes.Buffer)
			cli.out = out
			require.NoError(t, cli.run([]string{"admin", "import", "-file", "catalogo.csv"}))

			var resp importer.CommitResponse
			require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
			assert.True(t, resp.OK)
			assert.Equal(t, wantInserted, resp.Inserted.Disciplinas)
			assert.Equal(t, 1-wantInserted, resp.Updated.Disciplinas)
			assert.Equal(t, 1, countGroups(t))
		}
	})
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	out := new(bytes.Buffer)
	cli.out = out
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Contains(t, out.String(), "simulator SIM-MATH-001 - Cálculo Diferencial e Integral")
	assert.Contains(t, out.String(), "seed done: 30 records created")

	groups, err := cli.catRepo.QueryGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 5)
	subareas, err := cli.catRepo.QuerySubareas(ctx, "")
	require.NoError(t, err)
	assert.Len(t, subareas, 12)
	ds, err := cli.catRepo.QueryDisciplines(ctx, false)
	require.NoError(t, err)
	assert.Len(t, ds, 2)
	rs, err := cli.roadmapSvc.Query(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 5)
	assert.Equal(t, "MATH", rs[0].Group.CodeBase) // 80·70·90/40 = 12600

	// idempotent
	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "seed"}))
	assert.Equal(t, "seed done: 0 records created\n", out.String())
}
