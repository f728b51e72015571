package pagination_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/pkg/pagination"
)

func defaultConfig() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := pagination.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.DefaultPageSize != 25 {
		t.Errorf("DefaultPageSize = %d, want 25", cfg.DefaultPageSize)
	}
	if cfg.MaxPageSize != 200 {
		t.Errorf("MaxPageSize = %d, want 200", cfg.MaxPageSize)
	}
}

func TestConfigFinalizeValidation(t *testing.T) {
	cfg := pagination.Config{DefaultPageSize: 300, MaxPageSize: 100}
	err := cfg.Finalize(nil)
	if err == nil || !strings.Contains(err.Error(), "default_page_size 300 exceeds max_page_size 100") {
		t.Errorf("error = %v", err)
	}
}

func TestConfigFinalizeEnv(t *testing.T) {
	t.Setenv("TEST_PAGE_DEFAULT", "10")
	t.Setenv("TEST_PAGE_MAX", "not-a-number")

	cfg := pagination.Config{}
	err := cfg.Finalize(&pagination.Env{DefaultPageSize: "TEST_PAGE_DEFAULT", MaxPageSize: "TEST_PAGE_MAX"})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if cfg.DefaultPageSize != 10 || cfg.MaxPageSize != 200 {
		t.Errorf("config = %+v, want default 10 and max 200", cfg)
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantSize   int
		wantSearch string
	}{
		{"empty", "", 1, 20, ""},
		{"explicit", "page=3&page_size=10", 3, 10, ""},
		{"clamped size", "page_size=500", 1, 100, ""},
		{"negative page", "page=-2", 1, 20, ""},
		{"search", "search=libera", 1, 20, "libera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			req := pagination.PageRequestFromQuery(values, defaultConfig())

			if req.Page != tt.wantPage || req.PageSize != tt.wantSize {
				t.Errorf("page/size = %d/%d, want %d/%d", req.Page, req.PageSize, tt.wantPage, tt.wantSize)
			}
			got := ""
			if req.Search != nil {
				got = *req.Search
			}
			if got != tt.wantSearch {
				t.Errorf("search = %q, want %q", got, tt.wantSearch)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name      string
		req       pagination.PageRequest
		want      []int
		wantPages int
	}{
		{"first page", pagination.PageRequest{Page: 1, PageSize: 2}, []int{1, 2}, 3},
		{"last partial page", pagination.PageRequest{Page: 3, PageSize: 2}, []int{5}, 3},
		{"past the end", pagination.PageRequest{Page: 9, PageSize: 2}, []int{}, 3},
		{"single page", pagination.PageRequest{Page: 1, PageSize: 10}, []int{1, 2, 3, 4, 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pagination.Slice(items, tt.req)
			if diff := cmp.Diff(tt.want, got.Data); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
			if got.Total != 5 || got.TotalPages != tt.wantPages {
				t.Errorf("total/pages = %d/%d, want 5/%d", got.Total, got.TotalPages, tt.wantPages)
			}
		})
	}
}
