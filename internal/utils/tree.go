package utils

import (
	"sort"
	"strings"
)

type treeNode struct {
	name     string
	children map[string]*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := &treeNode{name: name, children: map[string]*treeNode{}}
	n.children[name] = c
	return c
}

// PathsToTree renders artifact paths as an indented tree, children sorted:
//
//	lib
//	├── main.dart
//	└── widgets
//	    └── glass_button.dart
func PathsToTree(paths []string) string {
	root := &treeNode{children: map[string]*treeNode{}}
	for _, p := range paths {
		cur := root
		for _, seg := range SplitPath(p) {
			cur = cur.child(seg)
		}
	}
	if len(root.children) == 0 {
		return ""
	}

	var sb strings.Builder
	top := sortedChildren(root)
	for _, c := range top {
		sb.WriteString(c.name)
		sb.WriteByte('\n')
		writeTree(&sb, c, "")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeTree(sb *strings.Builder, n *treeNode, prefix string) {
	kids := sortedChildren(n)
	for i, c := range kids {
		last := i == len(kids)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		sb.WriteString(prefix + branch + c.name + "\n")
		writeTree(sb, c, prefix+indent)
	}
}

func sortedChildren(n *treeNode) []*treeNode {
	out := make([]*treeNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
