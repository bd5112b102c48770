// Package report renders sessions, lookups and persisted runs for the terminal and for files.
package report

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"lazyresolve/internal/engine/descriptors"
)

var (
	packageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	memberStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Underline(true)
)

// TreeOptions controls RenderTree. MaxDepth 0 means unlimited.
type TreeOptions struct {
	MaxDepth int
	// Members includes functions, properties and constructors; otherwise only packages and
	// classes are shown.
	Members bool
	// Plain disables styling, for output written to files.
	Plain bool
}

func styleFor(d descriptors.Descriptor) lipgloss.Style {
	switch d.Kind() {
	case descriptors.KindPackage, descriptors.KindModule:
		return packageStyle
	case descriptors.KindClass:
		return classStyle
	}
	return memberStyle
}

func (o TreeOptions) style(d descriptors.Descriptor) lipgloss.Style {
	if o.Plain {
		return lipgloss.NewStyle()
	}
	return styleFor(d)
}

func (o TreeOptions) enumeratorStyle() lipgloss.Style {
	if o.Plain {
		return lipgloss.NewStyle()
	}
	return dimStyle
}

func visible(d descriptors.Descriptor, opts TreeOptions) bool {
	switch d.Kind() {
	case descriptors.KindPackage, descriptors.KindModule, descriptors.KindClass:
		return true
	}
	return opts.Members
}

func label(d descriptors.Descriptor) string {
	if p, ok := d.(descriptors.PackageDescriptor); ok && p.FqName().IsRoot() {
		return "<root>"
	}
	return descriptors.Render(d)
}

// RenderTree draws root and everything below it. Rendering resolves every descriptor it
// shows, so on a fresh session it has the cost of a full force-resolve of that subtree.
func RenderTree(root descriptors.Descriptor, opts TreeOptions) string {
	if root == nil {
		return ""
	}

	var stack []*tree.Tree
	var top *tree.Tree
	descriptors.Walk(root, func(d descriptors.Descriptor, depth int) bool {
		if !visible(d, opts) {
			return false
		}
		node := tree.Root(opts.style(d).Render(label(d))).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(opts.enumeratorStyle())

		stack = stack[:min(depth, len(stack))]
		if len(stack) == 0 {
			top = node
		} else {
			stack[len(stack)-1].Child(node)
		}
		stack = append(stack, node)
		return opts.MaxDepth == 0 || depth < opts.MaxDepth
	})
	if top == nil {
		return ""
	}
	return top.String()
}
