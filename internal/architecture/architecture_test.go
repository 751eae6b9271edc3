package architecture_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/davidleathers/outbound-pacing-backend/internal/"

// TestDomainNotDependOnOuterLayers ensures the domain layer never reaches
// into services, adapters or transport code.
func TestDomainNotDependOnOuterLayers(t *testing.T) {
	forbiddenImports := []string{
		"database/sql",
		"net/http",
		"github.com/jackc/pgx",
		"github.com/redis/go-redis",
		"github.com/gorilla/websocket",
		"github.com/prometheus/client_golang",
		"go.opentelemetry.io/otel/sdk",
		modulePath + "service",
		modulePath + "infrastructure",
		modulePath + "api",
	}

	for file, imports := range sourceImports(t, "../domain") {
		for _, imp := range imports {
			for _, forbidden := range forbiddenImports {
				if strings.HasPrefix(imp, forbidden) {
					t.Errorf("Domain file %s imports %s", file, imp)
				}
			}
		}
	}
}

// TestServicesUseInterfaces ensures services depend on their own
// interfaces rather than on concrete storage or transport packages.
func TestServicesUseInterfaces(t *testing.T) {
	forbidden := []string{
		modulePath + "infrastructure/repository",
		modulePath + "infrastructure/database",
		modulePath + "infrastructure/cache",
		modulePath + "api",
		"github.com/jackc/pgx",
		"github.com/redis/go-redis",
	}

	for file, imports := range sourceImports(t, "../service") {
		for _, imp := range imports {
			for _, f := range forbidden {
				if strings.HasPrefix(imp, f) {
					t.Errorf("Service file %s imports %s", file, imp)
				}
			}
		}
	}
}

// TestServicesDoNotImportEachOther keeps every service independently
// wireable. The scheduler is shared infrastructure for the periodic units.
func TestServicesDoNotImportEachOther(t *testing.T) {
	for file, imports := range sourceImports(t, "../service") {
		own := filepath.Base(filepath.Dir(file))
		for _, imp := range imports {
			rest, ok := strings.CutPrefix(imp, modulePath+"service/")
			if !ok {
				continue
			}
			other := strings.SplitN(rest, "/", 2)[0]
			if other != own && other != "scheduler" {
				t.Errorf("Service %s imports service %s (in %s)", own, other, file)
			}
		}
	}
}

// TestValueObjectsAreImmutable ensures value objects don't have setters
func TestValueObjectsAreImmutable(t *testing.T) {
	files, err := filepath.Glob("../domain/values/*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		node, err := parser.ParseFile(token.NewFileSet(), file, nil, 0)
		require.NoError(t, err)

		ast.Inspect(node, func(n ast.Node) bool {
			if fn, ok := n.(*ast.FuncDecl); ok && fn.Recv != nil && strings.HasPrefix(fn.Name.Name, "Set") {
				t.Errorf("Value object in %s has setter method: %s", file, fn.Name.Name)
			}
			return true
		})
	}
}

// sourceImports maps every non-test Go file under root to its imports.
func sourceImports(t *testing.T, root string) map[string][]string {
	t.Helper()
	out := make(map[string][]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		node, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range node.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				return err
			}
			out[path] = append(out[path], imp)
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, out, "no sources found under %s", root)
	return out
}
