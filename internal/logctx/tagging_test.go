package logctx

import (
	"context"
	"fastlog/internal/global"
	"reflect"
	"testing"
)

func ctxWithTags(tags []string) context.Context {
	return context.WithValue(context.Background(), global.LogTagsKey, tags)
}

func assertTags(t *testing.T, ctx context.Context, want []string) {
	t.Helper()
	got := GetTagList(ctx)
	if got == nil {
		got = []string{}
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tags mismatch: got=%v want=%v", got, want)
	}
}

func TestGetTagList(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want []string
	}{
		{
			name: "no value in context",
			ctx:  context.Background(),
			want: []string{},
		},
		{
			name: "correct slice stored",
			ctx:  ctxWithTags([]string{"a", "b"}),
			want: []string{"a", "b"},
		},
		{
			name: "wrong type stored",
			ctx:  context.WithValue(context.Background(), global.LogTagsKey, "nope"),
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTags(t, tt.ctx, tt.want)
		})
	}
}

func TestAppendCtxTag(t *testing.T) {
	tests := []struct {
		name      string
		startTags []string
		appendTag string
		want      []string
	}{
		{
			name:      "append to empty",
			startTags: []string{},
			appendTag: "a",
			want:      []string{"a"},
		},
		{
			name:      "append to existing",
			startTags: []string{"a", "b"},
			appendTag: "c",
			want:      []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ctxWithTags(tt.startTags)
			newCtx := AppendCtxTag(ctx, tt.appendTag)

			assertTags(t, newCtx, tt.want)

			// Parent context must remain unchanged
			assertTags(t, ctx, tt.startTags)
		})
	}
}

func TestRemoveLastCtxTag(t *testing.T) {
	tests := []struct {
		name      string
		startTags []string
		want      []string
	}{
		{
			name:      "remove from empty",
			startTags: []string{},
			want:      []string{},
		},
		{
			name:      "remove single",
			startTags: []string{"a"},
			want:      []string{},
		},
		{
			name:      "remove from multiple",
			startTags: []string{"a", "b", "c"},
			want:      []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ctxWithTags(tt.startTags)
			newCtx := RemoveLastCtxTag(ctx)

			assertTags(t, newCtx, tt.want)
			assertTags(t, ctx, tt.startTags)
		})
	}
}
