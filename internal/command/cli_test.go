package command_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/bvctree/internal/command"
	_ "github.com/keshon/bvctree/internal/command/all"
	"github.com/keshon/bvctree/internal/config"
	"github.com/keshon/bvctree/internal/hash"
)

type result struct {
	stdout string
	stderr string
	code   int
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := command.Run(context.Background(), args, &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// ok runs a command line in the repository at dir and requires success.
func ok(t *testing.T, dir string, args ...string) string {
	t.Helper()
	res := run(t, append([]string{"--repo", dir}, args...)...)
	require.Equal(t, 0, res.code, "bvctree %v\nstdout: %s\nstderr: %s", args, res.stdout, res.stderr)
	return res.stdout
}

func writeFile(t *testing.T, path, body string, perm os.FileMode) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), perm))
	return path
}

// putFiles stores files and returns their ids in argument order.
func putFiles(t *testing.T, dir string, files ...string) []string {
	t.Helper()
	out := ok(t, dir, append([]string{"put"}, files...)...)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(files))
	ids := make([]string, len(lines))
	for i, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 3, line)
		assert.Equal(t, files[i], fields[2])
		ids[i] = fields[0]
	}
	return ids
}

func initRepo(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	out := ok(t, dir, append([]string{"init"}, args...)...)
	assert.Contains(t, out, "Initialized empty repository")
	return dir
}

func TestCLI_BuildListAndShow(t *testing.T) {
	dir := initRepo(t)
	work := t.TempDir()
	readme := writeFile(t, filepath.Join(work, "README"), "hello\n", 0o644)
	tool := writeFile(t, filepath.Join(work, "tool.sh"), "#!/bin/sh\n", 0o755)

	res := run(t, "--repo", dir, "put", readme, tool)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "stored 2 file(s)")
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "f", strings.Fields(lines[0])[1])
	assert.Equal(t, "x", strings.Fields(lines[1])[1])
	readmeID := strings.Fields(lines[0])[0]
	toolID := strings.Fields(lines[1])[0]

	root := strings.TrimSpace(ok(t, dir, "mktree", "-p", "main",
		"--set", "docs/README=f:"+readmeID,
		"--set", "bin/tool=x:"+toolID,
		"-b", "main",
	))
	require.NoError(t, hash.ID(root).Validate())
	assert.Equal(t, root, strings.TrimSpace(ok(t, dir, "bookmark", "main")))

	assert.Equal(t,
		"x "+toolID+" bin/tool\nf "+readmeID+" docs/README\n",
		ok(t, dir, "ls", "-r", "main"))
	assert.Equal(t, "f "+readmeID+" README\n", ok(t, dir, "ls", root, "docs"))

	long := ok(t, dir, "ls", "-l", "main", "docs")
	assert.Contains(t, long, "6 B")

	assert.Equal(t, "hello\n", ok(t, dir, "cat", readmeID))

	empty := hash.MustNew(string(hash.XXH3)).Sum(nil)
	shown := ok(t, dir, "cat", "-p", "main")
	assert.True(t, strings.HasPrefix(shown, "parent "+string(empty)+"\n"), shown)
	assert.Contains(t, shown, " bin\n")
	assert.Contains(t, shown, " docs\n")

	verify := ok(t, dir, "verify")
	assert.Contains(t, verify, "Missing: \033[31m0\033[0m")
	assert.Contains(t, verify, "Checking 5 object(s)")
}

func TestCLI_RebuildIsIdempotent(t *testing.T) {
	dir := initRepo(t)
	work := t.TempDir()
	ids := putFiles(t, dir, writeFile(t, filepath.Join(work, "a"), "a", 0o644))

	first := ok(t, dir, "mktree", "--set", "x/y/a=f:"+ids[0])
	second := ok(t, dir, "mktree", "--set", "x/y/a=f:"+ids[0])
	assert.Equal(t, first, second)

	same := ok(t, dir, "mktree", "-p", strings.TrimSpace(first))
	assert.Equal(t, first, same)

	removed := ok(t, dir, "mktree", "-p", strings.TrimSpace(first), "--del", "x/y/a")
	assert.Equal(t, "t "+string(hash.MustNew(string(hash.XXH3)).Sum(nil))+" y\n",
		ok(t, dir, "ls", strings.TrimSpace(removed), "x"))
}

func TestCLI_EditBelowInsertedTree(t *testing.T) {
	dir := initRepo(t)
	work := t.TempDir()
	ids := putFiles(t, dir,
		writeFile(t, filepath.Join(work, "a"), "a", 0o644),
		writeFile(t, filepath.Join(work, "b"), "b", 0o644),
	)
	sub := strings.TrimSpace(ok(t, dir, "mktree", "--set", "x/a=f:"+ids[0]))

	root := strings.TrimSpace(ok(t, dir, "mktree",
		"--set", "d=t:"+sub,
		"--set", "d/x/b=f:"+ids[1],
	))
	assert.Equal(t,
		"f "+ids[0]+" d/x/a\nf "+ids[1]+" d/x/b\n",
		ok(t, dir, "ls", "-r", root))
}

func TestCLI_TwoParents(t *testing.T) {
	dir := initRepo(t)
	work := t.TempDir()
	ids := putFiles(t, dir,
		writeFile(t, filepath.Join(work, "a"), "a", 0o644),
		writeFile(t, filepath.Join(work, "b"), "b", 0o644),
	)
	left := strings.TrimSpace(ok(t, dir, "mktree", "--set", "f=f:"+ids[0]))
	right := strings.TrimSpace(ok(t, dir, "mktree", "--set", "f=f:"+ids[1]))

	res := run(t, "--repo", dir, "mktree", "-p", left, "-p", right)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--take")

	assert.Equal(t, right, strings.TrimSpace(ok(t, dir, "mktree", "-p", left, "-p", right, "--take", "2")))

	merged := strings.TrimSpace(ok(t, dir, "mktree", "-p", left, "-p", right, "--take", "1", "--set", "g=f:"+ids[1]))
	assert.Equal(t, "f "+ids[0]+" f\nf "+ids[1]+" g\n", ok(t, dir, "ls", merged))
	shown := ok(t, dir, "cat", "-p", merged)
	assert.Contains(t, shown, "parent "+left+"\nparent "+right+"\n")

	res = run(t, "--repo", dir, "mktree", "-p", left, "--take", "1")
	assert.Equal(t, 1, res.code)

	res = run(t, "--repo", dir, "mktree", "-p", left, "-p", right, "-p", left)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "at most two parents")
}

func TestCLI_MktreeRejectsBadEdits(t *testing.T) {
	dir := initRepo(t)
	for _, set := range []string{
		"noequals",
		"a=f",
		"a=q:" + strings.Repeat("1", 32),
		"a=f:nothex",
		"=f:" + strings.Repeat("1", 32),
		"a=t:" + strings.Repeat("1", 32),
	} {
		res := run(t, "--repo", dir, "mktree", "--set", set)
		assert.Equal(t, 1, res.code, set)
		assert.Contains(t, res.stderr, "--set", set)
	}
}

func TestCLI_VerifyReportsMissing(t *testing.T) {
	dir := initRepo(t)
	work := t.TempDir()
	ids := putFiles(t, dir, writeFile(t, filepath.Join(work, "a"), "payload", 0o644))
	ok(t, dir, "mktree", "-p", "main", "--set", "a=f:"+ids[0], "-b", "main")

	key := "file." + string(hash.XXH3) + "." + ids[0]
	obj := filepath.Join(dir, config.RepoDir, config.ObjectsDir, key[len(key)-2:], key+".bin")
	require.NoError(t, os.Remove(obj))

	res := run(t, "--repo", dir, "verify", "-v", "main")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "Missing: \033[31m1\033[0m")
	assert.Contains(t, res.stdout, "paths: [/a]")
	assert.Contains(t, res.stderr, "1 of 2 objects failed verification")
}

func TestCLI_VerifyCleanup(t *testing.T) {
	dir := initRepo(t)
	tmp := filepath.Join(dir, config.RepoDir, config.ObjectsDir, "ab", ".tmp-123")
	writeFile(t, tmp, "partial", 0o644)

	out := ok(t, dir, "verify", "--cleanup")
	assert.Contains(t, out, "Removed 1 temp file(s).")
	assert.NoFileExists(t, tmp)
}

func TestCLI_CopyAcrossBackends(t *testing.T) {
	src := initRepo(t)
	dst := initRepo(t, "--backend", "sqlite", "--compression", "lz4")
	work := t.TempDir()
	ids := putFiles(t, src,
		writeFile(t, filepath.Join(work, "a"), "alpha", 0o644),
		writeFile(t, filepath.Join(work, "b"), "beta", 0o644),
	)
	root := strings.TrimSpace(ok(t, src, "mktree", "-p", "main",
		"--set", "d/a=f:"+ids[0],
		"--set", "d/e/b=f:"+ids[1],
		"-b", "main",
	))

	assert.Equal(t, root+" copied 5, skipped 0\n", ok(t, src, "copy", "-b", "main", dst, "main"))
	assert.Equal(t, ok(t, src, "ls", "-r", "main"), ok(t, dst, "ls", "-r", "main"))
	ok(t, dst, "verify")

	assert.Equal(t, root+" copied 0, skipped 1\n", ok(t, src, "copy", dst, root))

	res := run(t, "--repo", src, "copy", src, "main")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "same repository")
}

func TestCLI_CopyRejectsHashMismatch(t *testing.T) {
	src := initRepo(t)
	dst := initRepo(t, "--hash", "blake3")

	res := run(t, "--repo", src, "copy", dst, "main")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "different hash algorithms")
}

func TestCLI_Bookmarks(t *testing.T) {
	dir := initRepo(t)
	empty := string(hash.MustNew(string(hash.XXH3)).Sum(nil))

	assert.Equal(t, empty+" main\n", ok(t, dir, "bookmark"))
	ok(t, dir, "bookmark", "topic", "main")
	assert.Equal(t, empty+" main\n"+empty+" topic\n", ok(t, dir, "bm"))

	res := run(t, "--repo", dir, "bookmark", "-c", "topic", "main")
	assert.Equal(t, 1, res.code)

	assert.Contains(t, ok(t, dir, "bookmark", "-d", "topic"), "Deleted bookmark topic")
	res = run(t, "--repo", dir, "bookmark", "topic")
	assert.Equal(t, 1, res.code)

	res = run(t, "--repo", dir, "bookmark", "x", "nowhere")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown revision")
}

func TestCLI_InitVariants(t *testing.T) {
	dir := initRepo(t)
	assert.Contains(t, ok(t, dir, "init"), "Reinitialized existing repository")

	work := t.TempDir()
	data := filepath.Join(t.TempDir(), "data")
	ok(t, work, "init", "--separate-dir", data, "-q", "--backend", "badger", "--no-bookmark")
	assert.FileExists(t, filepath.Join(work, config.RepoPointerFile))
	assert.FileExists(t, filepath.Join(data, config.ConfigFile))
	assert.NoDirExists(t, filepath.Join(work, config.RepoDir))

	sub := filepath.Join(work, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	assert.Empty(t, ok(t, sub, "bookmark"))

	res := run(t, "--repo", t.TempDir(), "init", "--backend", "tape")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid config")
}

func TestCLI_MetricsFile(t *testing.T) {
	dir := initRepo(t)
	metrics := filepath.Join(t.TempDir(), "metrics.prom")

	res := run(t, "--repo", dir, "--metrics-file", metrics, "ls", "main")
	require.Equal(t, 0, res.code, res.stderr)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bvctree_blobstore_operations_total")
}

func TestCLI_Usage(t *testing.T) {
	res := run(t)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "no command provided")

	res = run(t, "frobnicate")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `unknown command "frobnicate"`)

	res = run(t, "--log-level", "loud", "help")
	assert.Equal(t, 2, res.code)

	res = run(t, "help")
	assert.Equal(t, 0, res.code)
	for _, name := range []string{"bookmark", "cat", "copy", "init", "ls", "mktree", "put", "verify"} {
		assert.Contains(t, res.stdout, name)
	}

	res = run(t, "help", "mktree")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "--take")
	assert.Contains(t, res.stdout, "Aliases: make-tree")

	res = run(t, "put", "--help")
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Usage: put")

	res = run(t, "ls", "--bogus")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "Error parsing flags")

	res = run(t, "--repo", t.TempDir(), "ls", "main")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "not inside a bvctree repository")
}

func TestCLI_ImportExport(t *testing.T) {
	dir := initRepo(t)
	work := t.TempDir()
	writeFile(t, filepath.Join(work, "a.txt"), "alpha", 0o644)
	writeFile(t, filepath.Join(work, "lib", "b.txt"), "beta", 0o644)
	writeFile(t, filepath.Join(work, "tmp", "junk"), "junk", 0o644)
	writeFile(t, filepath.Join(work, config.IgnoreFile), "tmp/**\n", 0o644)

	res := run(t, "--repo", dir, "import", "-p", "main", "-b", "main", work)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "imported 3 file(s)")
	root := strings.TrimSpace(res.stdout)
	assert.Equal(t, root, strings.TrimSpace(ok(t, dir, "bookmark", "main")))

	listing := ok(t, dir, "ls", "-r", "main")
	assert.Contains(t, listing, " .bvctreeignore\n")
	assert.Contains(t, listing, " lib/b.txt\n")
	assert.NotContains(t, listing, "junk")

	vendor := t.TempDir()
	writeFile(t, filepath.Join(vendor, "v.txt"), "vendored", 0o644)
	nested := strings.TrimSpace(ok(t, dir, "import", "-q", "-p", "main", "--prefix", "third/party", vendor))
	assert.Contains(t, ok(t, dir, "ls", "-r", nested), " third/party/v.txt\n")
	assert.Contains(t, ok(t, dir, "ls", "-r", nested), " lib/b.txt\n")

	out := filepath.Join(t.TempDir(), "out")
	writeFile(t, filepath.Join(out, "stale"), "x", 0o644)
	res = run(t, "--repo", dir, "export", "--prune", nested, out)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "exported 4 file(s)")
	assert.NoFileExists(t, filepath.Join(out, "stale"))
	body, err := os.ReadFile(filepath.Join(out, "third", "party", "v.txt"))
	require.NoError(t, err)
	assert.Equal(t, "vendored", string(body))

	again := strings.TrimSpace(ok(t, dir, "import", "-q", out))
	assert.Equal(t, nested, again)
}

func TestCLI_InitCustomBookmark(t *testing.T) {
	dir := t.TempDir()
	ok(t, dir, "init", "-q", "-b", "trunk")
	empty := string(hash.MustNew(string(hash.XXH3)).Sum(nil))
	assert.Equal(t, empty+" trunk\n", ok(t, dir, "bookmark"))
}
