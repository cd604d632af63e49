package gitsync

import (
	"sort"
	"strings"
)

// SelectRefs computes the ordered refspec list to push for a mirror sync.
//
// allRefs is the full reference set of the local source clone after the
// destination remote has been fetched, so it contains the source's own
// refs plus refs/remotes/<dstRemote>/* tracking refs for whatever the
// destination already holds.
//
// Tags and local heads always map identically with no force flag. A
// remote-tracking ref of the source remote mirrors to a destination branch
// (refs/heads/<name>); it is force-prefixed exactly when the equivalent
// destination-tracking ref already exists, keeping the mirror's branch set
// convergent across repeated runs.
//
// A non-empty allowList retains only refspecs containing one of the listed
// names as a substring. The match is intentionally permissive: filtering
// for "main" also retains a branch named "maintenance".
func SelectRefs(allRefs []string, srcRemote, dstRemote string, allowList []string) []string {
	known := make(map[string]bool, len(allRefs))
	for _, ref := range allRefs {
		known[ref] = true
	}

	sorted := make([]string, len(allRefs))
	copy(sorted, allRefs)
	sort.Strings(sorted)

	srcRemotePrefix := "refs/remotes/" + srcRemote + "/"

	var refspecs []string
	for _, ref := range sorted {
		switch {
		case strings.HasPrefix(ref, "refs/tags/"):
			refspecs = append(refspecs, ref+":"+ref)

		case strings.HasPrefix(ref, "refs/heads/"):
			refspecs = append(refspecs, ref+":"+ref)

		case strings.HasPrefix(ref, srcRemotePrefix):
			remainder := strings.TrimPrefix(ref, srcRemotePrefix)
			dstTrackingRef := "refs/remotes/" + dstRemote + "/" + remainder
			dstBranch := "refs/heads/" + remainder

			if known[dstTrackingRef] {
				// The destination already has this branch; force-update it.
				refspecs = append(refspecs, "+"+ref+":"+dstBranch)
			} else {
				refspecs = append(refspecs, ref+":"+dstBranch)
			}
		}
	}

	if len(allowList) == 0 {
		return refspecs
	}

	var filtered []string
	for _, refspec := range refspecs {
		for _, name := range allowList {
			if strings.Contains(refspec, name) {
				filtered = append(filtered, refspec)
				break
			}
		}
	}
	return filtered
}
