package store

import (
	"bufio"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// networkFilesystemTypes lists /proc/mounts filesystem type strings known
// to weaken or break SQLite's WAL shared-memory semantics.
var networkFilesystemTypes = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smb": true, "smb2": true,
	"fuse.sshfs": true, "afs": true, "glusterfs": true, "ceph": true,
}

// isNetworkFilesystem reports whether path sits on a filesystem where WAL
// mode is unsafe. On Linux it parses /proc/mounts for the longest
// matching mount point; on other platforms it conservatively returns
// false (WAL is used by default) since there is no equivalent pseudo-file
// to consult.
func isNetworkFilesystem(path string) bool {
	if runtime.GOOS != "linux" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return false
	}
	defer f.Close()

	var bestMatch string
	var bestFSType string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fsType := fields[1], fields[2]
		if !strings.HasPrefix(abs, mountPoint) {
			continue
		}
		if len(mountPoint) > len(bestMatch) {
			bestMatch = mountPoint
			bestFSType = fsType
		}
	}
	return networkFilesystemTypes[bestFSType]
}

func logNetworkFSFallback(path string) {
	log.Printf("[store] %s is on a network filesystem; using rollback journal instead of WAL", path)
}
