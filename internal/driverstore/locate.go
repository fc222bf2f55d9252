package driverstore

import (
	"os"
	"strings"

	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/infcorrelate"
)

// folderSize is the recursive size of an OS directory.
func folderSize(dir string) (int64, error) {
	return infcorrelate.DirSize(os.DirFS(dir), ".")
}

// splitInfPath splits a store INF path such as
// `C:\Windows\System32\DriverStore\FileRepository\x.inf_amd64_1\x.inf`
// into its folder and file name, accepting either separator.
func splitInfPath(p string) (dir, name string) {
	i := strings.LastIndexAny(p, `\/`)
	if i <= 0 || i == len(p)-1 {
		return "", ""
	}
	return p[:i], p[i+1:]
}

// withInfPath resolves a record's original name, folder and size from the
// full store path of its INF. When any of the three cannot be determined,
// all three stay unknown.
func withInfPath(rec driverpkg.PackageRecord, infPath string, sizeOf func(string) (int64, error)) driverpkg.PackageRecord {
	dir, name := splitInfPath(infPath)
	if dir == "" {
		return rec.WithLocation("", "", 0)
	}
	size, err := sizeOf(dir)
	if err != nil {
		log.Debug("package folder size unavailable", "folder", dir, "error", err)
		return rec.WithLocation("", "", 0)
	}
	return rec.WithLocation(name, dir, size)
}
