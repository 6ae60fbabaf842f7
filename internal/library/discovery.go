package library

import (
	"os"
	"path/filepath"
	"strings"
)

// fileInfo holds one discovered file before processing.
type fileInfo struct {
	path     string
	mtime    int64
	class    Classification
	existing *File // tracked row, nil for new files
}

// discoverFiles walks the configured roots and returns every .abc file
// with its folder-rule classification. Walk errors skip the offending
// entry; discovery never fails a scan.
func discoverFiles(rules *ruleSet, report func(ScanProgress)) []fileInfo {
	var files []fileInfo
	seen := make(map[string]bool)

	for _, root := range rules.roots() {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}
			if d.IsDir() || !isABCFile(path) {
				return nil
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = filepath.Clean(path)
			}
			if seen[abs] {
				return nil
			}
			seen[abs] = true

			info, infoErr := d.Info()
			if infoErr != nil {
				return nil //nolint:nilerr // intentionally skipping errors
			}

			files = append(files, fileInfo{
				path:  abs,
				mtime: info.ModTime().Unix(),
				class: rules.classify(abs),
			})
			if len(files)%100 == 0 {
				report(ScanProgress{Phase: "scanning", Current: len(files)})
			}
			return nil
		})
	}
	return files
}

func isABCFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".abc")
}
