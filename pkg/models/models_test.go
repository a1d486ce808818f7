package models

import (
	"path/filepath"
	"testing"
	"time"
)

// ============== ScannedItem Tests ==============

func TestScannedItem(t *testing.T) {
	modified := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("PathJoinsFolderAndName", func(t *testing.T) {
		item := ScannedItem{Name: "IMG_0001.jpg", Folder: filepath.Join("card", "DCIM")}
		want := filepath.Join("card", "DCIM", "IMG_0001.jpg")
		if item.Path() != want {
			t.Errorf("Path() = %s, want %s", item.Path(), want)
		}
	})

	t.Run("CreatedFallsBackToModified", func(t *testing.T) {
		item := ScannedItem{Modified: modified}
		if !item.Created().Equal(modified) {
			t.Errorf("Created() = %v, want %v", item.Created(), modified)
		}
	})

	t.Run("CreatedPrefersMetadata", func(t *testing.T) {
		taken := modified.Add(-48 * time.Hour)
		item := ScannedItem{Modified: modified, Metadata: &Metadata{Created: taken}}
		if !item.Created().Equal(taken) {
			t.Errorf("Created() = %v, want %v", item.Created(), taken)
		}
	})
}

// ============== ImportRecord Tests ==============

func TestImportRecordIdentity(t *testing.T) {
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	a := NewImportRecord("IMG_0001.jpg", modified, 2<<20)
	b := NewImportRecord("IMG_0001.jpg", modified.Add(300*time.Millisecond), 2<<20)
	b.Imported = time.Now()

	if a.Key() != b.Key() {
		t.Errorf("Key() differs for same name/modified/size: %v vs %v", a.Key(), b.Key())
	}

	c := NewImportRecord("IMG_0001.jpg", modified, 1<<20)
	if a.Key() == c.Key() {
		t.Error("Key() should differ when size differs")
	}
}

func TestRecordSet(t *testing.T) {
	modified := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := NewImportRecord("b.jpg", modified, 10)
	first.Imported = modified.Add(time.Hour)

	set := NewRecordSet(first)

	t.Run("AddDuplicateKeepsOriginal", func(t *testing.T) {
		dup := NewImportRecord("b.jpg", modified, 10)
		dup.Imported = modified.Add(2 * time.Hour)
		if set.Add(dup) {
			t.Error("Add() should report false for a duplicate")
		}
		if !set[first.Key()].Imported.Equal(first.Imported) {
			t.Error("duplicate Add() overwrote the Imported time")
		}
	})

	t.Run("Contains", func(t *testing.T) {
		if !set.Contains(NewImportRecord("b.jpg", modified, 10)) {
			t.Error("Contains() = false, want true")
		}
		if set.Contains(NewImportRecord("a.jpg", modified, 10)) {
			t.Error("Contains() = true for unknown record")
		}
	})

	t.Run("MergeAndOrder", func(t *testing.T) {
		set.Merge(NewRecordSet(NewImportRecord("a.jpg", modified, 10)))
		records := set.Records()
		if len(records) != 2 {
			t.Fatalf("Records() length = %d, want 2", len(records))
		}
		if records[0].Name != "a.jpg" || records[1].Name != "b.jpg" {
			t.Errorf("Records() order = %s, %s", records[0].Name, records[1].Name)
		}
	})
}

// ============== ImportAnalysis Tests ==============

func TestImportAnalysisGroupsCaseInsensitive(t *testing.T) {
	a := NewImportAnalysis()
	a.Add(&ImportAnalysisItem{Folder: "/lib/2024/b", Action: ImportActionImport})
	a.Add(&ImportAnalysisItem{Folder: "/lib/2024/A", Action: ImportActionImport})
	a.Add(&ImportAnalysisItem{Folder: "/lib/2024/a", Action: ImportActionAlreadyExists})

	groups := a.Groups()
	if len(groups) != 2 {
		t.Fatalf("Groups() length = %d, want 2", len(groups))
	}
	if groups[0].Folder != "/lib/2024/A" {
		t.Errorf("first group = %s, want /lib/2024/A", groups[0].Folder)
	}
	if len(groups[0].Items) != 2 {
		t.Errorf("first group items = %d, want 2", len(groups[0].Items))
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
	if a.Count(ImportActionImport) != 2 {
		t.Errorf("Count(import) = %d, want 2", a.Count(ImportActionImport))
	}
}

// ============== Sync Tests ==============

func TestSyncAnalysisItemPaths(t *testing.T) {
	item := &SyncAnalysisItem{
		RelativePath: "2024/photo.jpg",
		LocalRoot:    filepath.Join("home", "pics"),
		RemoteRoot:   filepath.Join("mnt", "nas"),
		Remote:       &SyncSide{Path: filepath.Join("mnt", "nas", "2024", "photo.jpg")},
	}

	wantLocal := filepath.Join("home", "pics", "2024", "photo.jpg")
	if item.LocalPath() != wantLocal {
		t.Errorf("LocalPath() = %s, want %s", item.LocalPath(), wantLocal)
	}
	if item.RemotePath() != item.Remote.Path {
		t.Errorf("RemotePath() = %s, want %s", item.RemotePath(), item.Remote.Path)
	}
}

func TestSyncPlanSortedAndCount(t *testing.T) {
	plan := SyncPlan{
		"b.jpg": {RelativePath: "b.jpg", Action: SyncCopyRemote},
		"a.jpg": {RelativePath: "a.jpg", Action: SyncNone},
		"c.jpg": {RelativePath: "c.jpg", Action: SyncCopyRemote},
	}

	sorted := plan.Sorted()
	if sorted[0].RelativePath != "a.jpg" || sorted[2].RelativePath != "c.jpg" {
		t.Errorf("Sorted() order wrong: %s .. %s", sorted[0].RelativePath, sorted[2].RelativePath)
	}
	if plan.Count(SyncCopyRemote) != 2 {
		t.Errorf("Count(copy_remote) = %d, want 2", plan.Count(SyncCopyRemote))
	}
}

// ============== Options Tests ==============

func TestImportOptionsValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		opts := ImportOptions{DestFolder: "/library", DestStructure: "{year}"}
		if err := opts.Validate(); err != nil {
			t.Errorf("Validate() error = %v, want nil", err)
		}
	})

	t.Run("EmptyDestFolder", func(t *testing.T) {
		err := ImportOptions{}.Validate()
		if err == nil {
			t.Fatal("Validate() should fail for empty destination folder")
		}
		if ve, ok := err.(*ValidationError); ok {
			if ve.Field != "DestFolder" {
				t.Errorf("ValidationError.Field = %s, want DestFolder", ve.Field)
			}
		}
	})
}

func TestFailurePolicyValid(t *testing.T) {
	tests := []struct {
		policy FailurePolicy
		valid  bool
	}{
		{FailureContinue, true},
		{FailureStop, true},
		{FailurePolicy("retry"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			if tt.policy.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", tt.policy.Valid(), tt.valid)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "TestField: test message"
	if err.Error() != expected {
		t.Errorf("Error() = %s, want %s", err.Error(), expected)
	}
}

// ============== Report Tests ==============

func TestJobReportSummary(t *testing.T) {
	r := &JobReport{Kind: JobImport, Processed: 3, Failed: 1, Ignored: 2}
	if got := r.Summary(); got != "3 imported, 1 failed, 2 ignored" {
		t.Errorf("Summary() = %q", got)
	}

	r.Cancelled = 4
	if got := r.Summary(); got != "3 imported, 1 failed, 2 ignored, 4 cancelled" {
		t.Errorf("Summary() with cancelled = %q", got)
	}
}

func TestJobReportResolveStatus(t *testing.T) {
	tests := []struct {
		name   string
		report JobReport
		want   JobStatus
	}{
		{"AllGood", JobReport{Processed: 2}, StatusSuccess},
		{"SomeFailed", JobReport{Processed: 2, Failed: 1}, StatusPartial},
		{"AllFailed", JobReport{Failed: 2}, StatusFailed},
		{"Cancelled", JobReport{Processed: 1, Cancelled: 3}, StatusCancelled},
		{"AbortedNothingDone", JobReport{Aborted: true}, StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.report
			r.ResolveStatus()
			if r.Status != tt.want {
				t.Errorf("Status = %s, want %s", r.Status, tt.want)
			}
		})
	}
}

func TestJobStatusExitCode(t *testing.T) {
	tests := []struct {
		status JobStatus
		code   int
	}{
		{StatusSuccess, 0},
		{StatusPartial, 1},
		{StatusFailed, 2},
		{StatusCancelled, 3},
		{JobStatus("weird"), 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if tt.status.ExitCode() != tt.code {
				t.Errorf("ExitCode() = %d, want %d", tt.status.ExitCode(), tt.code)
			}
		})
	}
}

func TestTimestampComparison(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		a, b      time.Time
		same      bool
		newerThan bool
	}{
		{"Equal", base, base, true, false},
		{"SubSecond", base.Add(500 * time.Millisecond), base, true, false},
		{"OneSecondNewer", base.Add(time.Second), base, false, true},
		{"Older", base, base.Add(time.Hour), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameModTime(tt.a, tt.b); got != tt.same {
				t.Errorf("SameModTime() = %v, want %v", got, tt.same)
			}
			if got := NewerThan(tt.a, tt.b); got != tt.newerThan {
				t.Errorf("NewerThan() = %v, want %v", got, tt.newerThan)
			}
		})
	}
}
