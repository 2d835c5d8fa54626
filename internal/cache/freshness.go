package cache

import (
	"os"
	"path/filepath"
	"strings"
)

// PathFor returns the cache file path for srcPath on a host tagged
// machineTag (platform.Info.MachineTag, e.g. "x86_64"): the source
// file's stem with ".<machine>.o" appended, sitting next to the source
// rather than in a separate cache directory, per spec §4.7 ("a sibling
// object file").
func PathFor(srcPath, machineTag string) string {
	ext := filepath.Ext(srcPath)
	stem := strings.TrimSuffix(srcPath, ext)
	return stem + "." + machineTag + ".o"
}

// IsFresh reports whether the cache file at cachePath can be reused for
// srcPath without recompiling. The freshness rule is mtime *equality*, not
// "cache newer than or equal to source" (spec §9: a content hash was
// considered and rejected — see DESIGN.md): if the source's mtime was
// touched at all, forward or backward, the cache is stale. Any file in
// headers (importmod passes the source's sibling *.h files) additionally
// invalidates the cache if its mtime is strictly newer than the cache's.
func IsFresh(srcPath, cachePath string, headers []string) (bool, error) {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return false, err
	}
	cacheInfo, err := os.Stat(cachePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !srcInfo.ModTime().Equal(cacheInfo.ModTime()) {
		return false, nil
	}

	for _, h := range headers {
		hInfo, err := os.Stat(h)
		if os.IsNotExist(err) {
			continue // an include that vanished can't have invalidated anything
		}
		if err != nil {
			return false, err
		}
		if hInfo.ModTime().After(cacheInfo.ModTime()) {
			return false, nil
		}
	}

	return true, nil
}

// StampLikeSource sets cachePath's mtime to match srcPath's, establishing
// the equality IsFresh checks on the next lookup. Callers invoke this
// immediately after writing a freshly compiled object.
func StampLikeSource(srcPath, cachePath string) error {
	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	return os.Chtimes(cachePath, srcInfo.ModTime(), srcInfo.ModTime())
}
