package process

import "testing"

func TestKillTree_IgnoresInvalidPIDs(t *testing.T) {
	t.Parallel()

	// Must return without signalling anything: 0 and negatives would hit
	// the test binary's own process group.
	for _, pid := range []int{0, -1, 999999999} {
		KillTree(pid)
	}
}
