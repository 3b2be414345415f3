package sizetree

import "testing"

func TestComputeExtensionStats_BucketsAndSorts(t *testing.T) {
	root := NewRoot()
	root.Absorb(StoredRow{Path: "src/main.go", CumulativeSize: 100, CurrentSize: 100, BlobCount: 1})
	root.Absorb(StoredRow{Path: "src/lib.go", CumulativeSize: 50, CurrentSize: 50, BlobCount: 1})
	root.Absorb(StoredRow{Path: "assets/logo.PNG", CumulativeSize: 2000, CurrentSize: 2000, BlobCount: 1})
	root.Absorb(StoredRow{Path: "Makefile", CumulativeSize: 5, CurrentSize: 5, BlobCount: 1})
	root.Absorb(StoredRow{Path: "vendor/noext.", CumulativeSize: 1, CurrentSize: 1, BlobCount: 1})
	root.ComputeTotals()

	stats := ComputeExtensionStats(root)

	if len(stats) != 3 {
		t.Fatalf("expected 3 buckets (go, png, no-ext), got %d: %+v", len(stats), stats)
	}

	if stats[0].Extension != "png" || stats[0].CumulativeSize != 2000 {
		t.Errorf("expected png bucket first with 2000 bytes, got %+v", stats[0])
	}

	var goStat, noExtStat *ExtensionStat
	for i := range stats {
		switch stats[i].Extension {
		case "go":
			goStat = &stats[i]
		case noExtBucket:
			noExtStat = &stats[i]
		}
	}
	if goStat == nil {
		t.Fatal("missing go bucket")
	}
	if goStat.CumulativeSize != 150 || goStat.BlobCount != 2 {
		t.Errorf("go bucket = %+v, want cumulative=150 blobCount=2", goStat)
	}
	if noExtStat == nil {
		t.Fatal("missing no-ext bucket")
	}
	if noExtStat.BlobCount != 2 {
		t.Errorf("no-ext bucket blob count = %d, want 2 (Makefile + trailing-dot file)", noExtStat.BlobCount)
	}
}

func TestExtensionOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main.go", "go"},
		{"logo.PNG", "png"},
		{"Makefile", noExtBucket},
		{"trailing.", noExtBucket},
		{".hidden", "hidden"},
		{"way.too.long.extension.here", noExtBucket},
	}
	for _, tt := range tests {
		if got := extensionOf(tt.name); got != tt.want {
			t.Errorf("extensionOf(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
