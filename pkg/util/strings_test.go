package util

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	got := SplitList(" Gold, KOSPI ,,Gold,Fed_Funds ")
	want := []string{"Gold", "KOSPI", "Fed_Funds"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if SplitList("  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}
