package version

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wudi/specsync/internal/changedetect"
	"github.com/wudi/specsync/internal/contract"
	"github.com/wudi/specsync/internal/metadata"
)

const usersSpec = `
openapi: "3.0.0"
info:
  title: Users API
  version: "1.0.0"
paths:
  /users:
    get:
      operationId: listUsers
      responses:
        "200":
          description: Users list
    post:
      operationId: createUser
      responses:
        "201":
          description: Created
`

const usersSpecReadOnly = `
openapi: "3.0.0"
info:
  title: Users API
  version: "1.0.0"
paths:
  /users:
    get:
      operationId: listUsers
      responses:
        "200":
          description: Users list
`

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	store := metadata.NewStore(root, ".specsync")
	if _, err := store.Initialize("test-project", ""); err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	detector := changedetect.NewDetector(store, "specifications", nil)
	return NewManager(store, detector, "specifications", nil), root
}

func writeSource(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source contract: %v", err)
	}
	return path
}

func writeSnapshot(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, "specifications")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create specifications dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestCreateFirstVersion(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)

	spec, err := m.CreateVersion(source, BumpAuto, "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	if spec.Name != "users" {
		t.Errorf("expected name users, got %q", spec.Name)
	}
	if spec.Version.String() != "1.0.0" {
		t.Errorf("first version must be 1.0.0, got %s", spec.Version)
	}
	want := filepath.Join(root, "specifications", "users_v1.0.0.yaml")
	if spec.FilePath != want {
		t.Errorf("expected snapshot at %s, got %s", want, spec.FilePath)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}

	doc, err := contract.Load(want)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if got := contract.DocVersion(doc); got != "1.0.0" {
		t.Errorf("embedded version not rewritten: %q", got)
	}
}

func TestCreateVersionAutoMajorOnBreakingChange(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create first version: %v", err)
	}

	// Dropping POST /users is breaking, so AUTO must cut a major.
	writeSource(t, root, "users.yaml", usersSpecReadOnly)

	spec, err := m.CreateVersion(source, BumpAuto, "")
	if err != nil {
		t.Fatalf("create second version: %v", err)
	}
	if spec.Version.String() != "2.0.0" {
		t.Errorf("expected 2.0.0, got %s", spec.Version)
	}
}

func TestCreateVersionAutoPatchOnNoChange(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create first version: %v", err)
	}

	spec, err := m.CreateVersion(source, BumpAuto, "")
	if err != nil {
		t.Fatalf("create second version: %v", err)
	}
	if spec.Version.String() != "1.0.1" {
		t.Errorf("expected 1.0.1, got %s", spec.Version)
	}
}

func TestCreateVersionExplicitTarget(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)

	spec, err := m.CreateVersion(source, BumpAuto, "3.1.4")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if spec.Version.String() != "3.1.4" {
		t.Errorf("expected 3.1.4, got %s", spec.Version)
	}
}

func TestCreateVersionRefusesOverwrite(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)
	if _, err := m.CreateVersion(source, BumpAuto, "1.5.0"); err != nil {
		t.Fatalf("create version: %v", err)
	}

	_, err := m.CreateVersion(source, BumpAuto, "1.5.0")
	if !errors.Is(err, ErrVersionExists) {
		t.Errorf("expected ErrVersionExists, got %v", err)
	}
}

func TestCreateVersionRejectsInvalidTarget(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)

	if _, err := m.CreateVersion(source, BumpAuto, "not-a-version"); err == nil {
		t.Error("expected error for an invalid target version")
	}
}

func TestVersionsOfSemanticOrder(t *testing.T) {
	m, root := newTestManager(t)
	writeSnapshot(t, root, "users_v1.0.0.yaml", usersSpec)
	writeSnapshot(t, root, "users_v1.10.0.yaml", usersSpec)
	writeSnapshot(t, root, "users_v1.2.0.yaml", usersSpec)
	writeSnapshot(t, root, "users_vbroken.yaml", usersSpec)
	writeSnapshot(t, root, "orders_v1.0.0.yaml", usersSpec)

	versions, err := m.VersionsOf("users")
	if err != nil {
		t.Fatalf("versions of: %v", err)
	}

	var got []string
	for _, v := range versions {
		got = append(got, v.Version.String())
	}
	want := []string{"1.0.0", "1.2.0", "1.10.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLatestEmpty(t *testing.T) {
	m, _ := newTestManager(t)

	latest, err := m.Latest("users")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil latest, got %+v", latest)
	}
}

func TestCompare(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create first version: %v", err)
	}
	writeSource(t, root, "users.yaml", usersSpecReadOnly)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create second version: %v", err)
	}

	analysis, err := m.Compare("users", "1.0.0", "2.0.0")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !analysis.Breaking {
		t.Errorf("expected breaking comparison, got %+v", analysis)
	}

	if _, err := m.Compare("users", "1.0.0", "9.9.9"); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestCompatibilityMatrix(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create first version: %v", err)
	}
	writeSource(t, root, "users.yaml", usersSpecReadOnly)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create second version: %v", err)
	}

	matrix, err := m.CompatibilityMatrix()
	if err != nil {
		t.Fatalf("compatibility matrix: %v", err)
	}

	row, ok := matrix["users"]
	if !ok {
		t.Fatalf("expected a users row, got %v", matrix)
	}
	v1, v2 := row["1.0.0"], row["2.0.0"]
	if v1.IsLatest || v1.HasBreakingChanges {
		t.Errorf("unexpected flags for 1.0.0: %+v", v1)
	}
	if !v2.IsLatest || !v2.HasBreakingChanges {
		t.Errorf("unexpected flags for 2.0.0: %+v", v2)
	}
}

func TestLatestPointerTracksHighestVersion(t *testing.T) {
	m, root := newTestManager(t)
	source := writeSource(t, root, "users.yaml", usersSpec)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create first version: %v", err)
	}
	writeSource(t, root, "users.yaml", usersSpecReadOnly)
	if _, err := m.CreateVersion(source, BumpAuto, ""); err != nil {
		t.Fatalf("create second version: %v", err)
	}

	link := filepath.Join(root, "specifications", "latest", "users.yaml")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("read latest pointer: %v", err)
	}
	if target != filepath.Join("..", "users_v2.0.0.yaml") {
		t.Errorf("latest pointer at %q, want ../users_v2.0.0.yaml", target)
	}
}
