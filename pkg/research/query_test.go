package research

import (
	"testing"

	"shoppinglens-be/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		seed model.SearchSeed
		want string
	}{
		{
			name: "visible text only",
			seed: model.SearchSeed{VisibleText: []string{"Sony", "WH-1000XM5"}},
			want: "Sony WH-1000XM5",
		},
		{
			name: "priority order",
			seed: model.SearchSeed{
				VisibleText:       []string{"XM5"},
				BrandHint:         "Sony",
				CategoryHint:      "headphones",
				VisualDescription: "black over-ear",
			},
			want: "XM5 Sony headphones black over-ear",
		},
		{
			name: "blank values dropped and trimmed",
			seed: model.SearchSeed{
				VisibleText:  []string{"  ", " Kindle ", ""},
				BrandHint:    "\t",
				CategoryHint: " e-reader ",
			},
			want: "Kindle e-reader",
		},
		{
			name: "empty seed",
			seed: model.SearchSeed{},
			want: UnknownProductQuery,
		},
		{
			name: "only whitespace",
			seed: model.SearchSeed{VisibleText: []string{" "}, VisualDescription: "  "},
			want: "unknown product",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.seed))
		})
	}
}
