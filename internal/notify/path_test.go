package notify

import (
	"testing"

	"github.com/nilslice/datadictd/internal/ddserr"
)

func TestDatasetAndPartitionName(t *testing.T) {
	cases := []struct {
		dataset, partition string
	}{
		{"example_dataset", "2020/03/25/some_partition.pb.tar.gz"},
		{"o7hrlkjbasd", "___pattern-1/23456/some_partition.pb.tar.gz"},
		{"w", "1_1__1___1_____1---3343-:some_partition.pb.tar.gz"},
		{"__r34-d--de-fsine3", "s"},
	}

	for _, c := range cases {
		path := c.dataset + "/" + c.partition

		gotDataset, err := DatasetName(path)
		if err != nil {
			t.Fatalf("DatasetName(%q): %v", path, err)
		}
		if gotDataset != c.dataset {
			t.Errorf("DatasetName(%q) = %q, want %q", path, gotDataset, c.dataset)
		}

		gotPartition, err := PartitionName(path)
		if err != nil {
			t.Fatalf("PartitionName(%q): %v", path, err)
		}
		if gotPartition != c.partition {
			t.Errorf("PartitionName(%q) = %q, want %q", path, gotPartition, c.partition)
		}

		bare, err := PartitionName(c.dataset)
		if err != nil {
			t.Fatalf("PartitionName(%q): %v", c.dataset, err)
		}
		if bare != "" {
			t.Errorf("PartitionName(%q) = %q, want empty (bare dataset path)", c.dataset, bare)
		}
	}
}

func TestPartitionName_DescriptorIsGuarded(t *testing.T) {
	got, err := PartitionName("weather/dd.json")
	if err != nil {
		t.Fatalf("PartitionName: %v", err)
	}
	if got != "" {
		t.Errorf("expected dd.json to resolve to no partition name, got %q", got)
	}
}

func TestDatasetName_EmptyPathIsInputValidation(t *testing.T) {
	_, err := DatasetName("")
	if err == nil {
		t.Fatal("expected error for empty object path")
	}
	if ddserr.KindOf(err) != ddserr.KindInputValidation {
		t.Errorf("expected KindInputValidation, got %v", ddserr.KindOf(err))
	}
}
