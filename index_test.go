package knowsearch

import (
	"path/filepath"
	"sync"
	"testing"
)

func newTestFacade(t *testing.T, kind BackendKind) *Facade {
	t.Helper()
	return NewFacade(kind, nil)
}

func TestFacadeForwardSupportsPhraseAndExactDirectly(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "doc.txt", "the quick brown fox")

	f := newTestFacade(t, Forward)
	if err := f.AddDocument(path, []rune("the quick brown fox")); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	if got := f.SearchPhrase([]rune("quick brown")); len(got) != 1 {
		t.Fatalf("SearchPhrase = %v, want one match", got)
	}
	if got := f.SearchSingularExact([]rune("fox")); len(got) != 1 {
		t.Fatalf("SearchSingularExact = %v, want one match", got)
	}
}

func TestFacadeInvertedFallsBackToSimpleSearch(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "doc.txt", "the quick brown fox")

	f := newTestFacade(t, Inverted)
	if err := f.AddDocument(path, []rune("the quick brown fox")); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	phrase := f.SearchPhrase([]rune("quick brown"))
	simple := f.SearchSimple([]rune("quick brown"))
	if len(phrase) != len(simple) {
		t.Fatalf("an inverted Facade's SearchPhrase must fall back to SearchSimple, got %v vs %v", phrase, simple)
	}
}

func TestFacadeGetDocumentsOnlyForForward(t *testing.T) {
	fwd := newTestFacade(t, Forward)
	if _, ok := fwd.GetDocuments(); !ok {
		t.Fatal("forward Facade must support GetDocuments")
	}

	inv := newTestFacade(t, Inverted)
	if _, ok := inv.GetDocuments(); ok {
		t.Fatal("inverted Facade must report GetDocuments as unsupported")
	}
}

func TestFacadeStoreWithoutPersistedPathFails(t *testing.T) {
	f := newTestFacade(t, Forward)
	if err := f.Store(); err != ErrNoPersistedPath {
		t.Fatalf("Store() without a prior StoreWithName/FromDisk = %v, want ErrNoPersistedPath", err)
	}
}

func TestFacadeStoreWithNameThenFromDiskRoundTripsForward(t *testing.T) {
	dir := t.TempDir()
	docPath := writeTempFile(t, dir, "doc.txt", "alpha beta gamma")
	otherPath := writeTempFile(t, dir, "other.txt", "delta epsilon")
	indexPath := filepath.Join(dir, "test.index.json")

	f := newTestFacade(t, Forward)
	if err := f.AddDocument(docPath, []rune("alpha beta gamma")); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := f.AddDocument(otherPath, []rune("delta epsilon")); err != nil {
		t.Fatalf("AddDocument(other): %v", err)
	}
	if err := f.StoreWithName(indexPath); err != nil {
		t.Fatalf("StoreWithName: %v", err)
	}

	f2 := newTestFacade(t, Forward)
	if err := f2.FromDisk(indexPath); err != nil {
		t.Fatalf("FromDisk: %v", err)
	}
	if got := f2.SearchSimple([]rune("alpha")); len(got) != 1 {
		t.Fatalf("reloaded facade SearchSimple = %v, want one match", got)
	}
	if f2.PersistedPath() != indexPath {
		t.Fatalf("PersistedPath() = %q, want %q", f2.PersistedPath(), indexPath)
	}
}

func TestFacadeStoreWithNameThenFromDiskRoundTripsInverted(t *testing.T) {
	dir := t.TempDir()
	docPath := writeTempFile(t, dir, "doc.txt", "alpha beta gamma")
	otherPath := writeTempFile(t, dir, "other.txt", "delta epsilon")
	indexPath := filepath.Join(dir, "test.index.bin")

	f := newTestFacade(t, Inverted)
	if err := f.AddDocument(docPath, []rune("alpha beta gamma")); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := f.AddDocument(otherPath, []rune("delta epsilon")); err != nil {
		t.Fatalf("AddDocument(other): %v", err)
	}
	if err := f.StoreWithName(indexPath); err != nil {
		t.Fatalf("StoreWithName: %v", err)
	}

	f2 := newTestFacade(t, Inverted)
	if err := f2.FromDisk(indexPath); err != nil {
		t.Fatalf("FromDisk: %v", err)
	}
	if got := f2.SearchSimple([]rune("alpha")); len(got) != 1 {
		t.Fatalf("reloaded facade SearchSimple = %v, want one match", got)
	}
}

func TestFacadePathsWithPrefixForward(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	_ = sub
	nested := writeTempFile(t, dir, "nested.txt", "content")

	f := newTestFacade(t, Forward)
	f.AddDocument(nested, []rune("content"))

	prefix := dir + string(filepath.Separator)
	got := f.PathsWithPrefix(prefix)
	if len(got) != 1 || got[0] != nested {
		t.Fatalf("PathsWithPrefix(%q) = %v, want [%s]", prefix, got, nested)
	}
}

func TestFacadeConcurrentAccessIsSafe(t *testing.T) {
	dir := t.TempDir()
	f := newTestFacade(t, Inverted)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := writeTempFile(t, dir, filepathName(i), "some shared words here")
			f.AddDocument(path, []rune("some shared words here"))
			f.SearchSimple([]rune("shared"))
		}()
	}
	wg.Wait()

	if f.SearchSimple([]rune("shared")) == nil {
		t.Fatal("expected search results after concurrent inserts")
	}
}

func filepathName(i int) string {
	return "doc" + string(rune('a'+i)) + ".txt"
}

func TestFacadeCloseFlushesWhenPersistedPathSet(t *testing.T) {
	dir := t.TempDir()
	docPath := writeTempFile(t, dir, "doc.txt", "alpha")
	otherPath := writeTempFile(t, dir, "other.txt", "delta epsilon")
	indexPath := filepath.Join(dir, "test.index.json")

	f := newTestFacade(t, Forward)
	f.AddDocument(docPath, []rune("alpha"))
	f.AddDocument(otherPath, []rune("delta epsilon"))
	if err := f.StoreWithName(indexPath); err != nil {
		t.Fatalf("StoreWithName: %v", err)
	}
	f.AddDocument(docPath, []rune("alpha beta"))
	f.Close()

	f2 := newTestFacade(t, Forward)
	if err := f2.FromDisk(indexPath); err != nil {
		t.Fatalf("FromDisk after Close: %v", err)
	}
	if got := f2.SearchSimple([]rune("beta")); len(got) != 1 {
		t.Fatal("Close must flush the latest state to the persisted path")
	}
}
