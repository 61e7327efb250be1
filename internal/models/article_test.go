package models

import (
	"testing"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		pageSize   int
		total      int
		wantPages  int
		wantNext   bool
		wantPrev   bool
	}{
		{"middle page", 2, 20, 95, 5, true, true},
		{"last page", 5, 20, 95, 5, false, true},
		{"first page", 1, 20, 95, 5, true, false},
		{"exact multiple", 4, 20, 80, 4, false, true},
		{"single page", 1, 20, 7, 1, false, false},
		{"empty", 1, 20, 0, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.pageSize, tt.total)
			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if p.HasNext != tt.wantNext {
				t.Errorf("HasNext = %t, want %t", p.HasNext, tt.wantNext)
			}
			if p.HasPrev != tt.wantPrev {
				t.Errorf("HasPrev = %t, want %t", p.HasPrev, tt.wantPrev)
			}
		})
	}
}
