// Package sqltext rewrites SQL text stored in input tools.
package sqltext

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	sqllang "github.com/smacker/go-tree-sitter/sql"
)

// StripLineComments removes "--" comments from query. Lines that held only a
// comment are dropped and trailing blanks left behind are trimmed. Comment
// markers inside string literals are not comments and are kept.
func StripLineComments(ctx context.Context, query string) (string, error) {
	src := []byte(query)
	parser := sitter.NewParser()
	parser.SetLanguage(sqllang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return "", fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	root := tree.RootNode()
	if root == nil {
		return "", fmt.Errorf("tree-sitter returned nil root")
	}

	var starts []int
	collectComments(root, src, &starts)
	if len(starts) == 0 {
		return query, nil
	}
	sort.Ints(starts)

	var out []string
	offset := 0
	next := 0
	for _, line := range strings.SplitAfter(query, "\n") {
		end := offset + len(line)
		body := strings.TrimSuffix(line, "\n")
		if next < len(starts) && starts[next] < end {
			cut := strings.TrimRight(body[:starts[next]-offset], " \t\r")
			for next < len(starts) && starts[next] < end {
				next++
			}
			if strings.TrimSpace(cut) != "" {
				out = append(out, cut)
			}
		} else if line != "" {
			out = append(out, body)
		}
		offset = end
	}
	result := strings.Join(out, "\n")
	if strings.HasSuffix(query, "\n") && result != "" {
		result += "\n"
	}
	return result, nil
}

// collectComments records the start offset of every line comment node.
func collectComments(node *sitter.Node, src []byte, starts *[]int) {
	if node.Type() == "comment" && strings.HasPrefix(node.Content(src), "--") {
		*starts = append(*starts, int(node.StartByte()))
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectComments(node.Child(i), src, starts)
	}
}
