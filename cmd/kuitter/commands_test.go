package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    map[string][]string
		wantErr bool
	}{
		{
			name: "несколько вопросов",
			in:   []string{"substance=alcohol, nicotine", "support=partner"},
			want: map[string][]string{"substance": {"alcohol", "nicotine"}, "support": {"partner"}},
		},
		{
			name: "повтор вопроса дополняет ответы",
			in:   []string{"substance=alcohol", "substance=gambling"},
			want: map[string][]string{"substance": {"alcohol", "gambling"}},
		},
		{name: "без знака равенства", in: []string{"substance"}, wantErr: true},
		{name: "пустые варианты", in: []string{"substance= "}, wantErr: true},
		{name: "пустой вопрос", in: []string{"=alcohol"}, wantErr: true},
		{name: "ничего", in: nil, want: map[string][]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnswers(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
