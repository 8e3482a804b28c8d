package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/wkalt/betree/nodestore"
	"github.com/wkalt/betree/tree"
)

/*
inspectTree walks a live tree's nodes directly through its Store, the way
the teacher's treeinspect command walks a serialized tree file - one color
per node id, indented by depth. Unlike the teacher's version this always
runs against a resident Tree rather than a bare file, since betree has no
on-disk pointer to "the current root" the way the reference format's
trailer record does; a tree only knows its own root while it's open.
*/

////////////////////////////////////////////////////////////////////////////////

var nodeColors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgBlue),
	color.New(color.FgYellow),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
	color.New(color.FgHiRed),
	color.New(color.FgHiBlue),
	color.New(color.FgHiYellow),
	color.New(color.FgHiCyan),
}

func colorFor(id nodestore.NodeID) *color.Color {
	return nodeColors[int(id)%len(nodeColors)]
}

func inspectTree(ctx context.Context, tr *tree.Tree[string, []byte]) (string, error) {
	rootID, hasRoot := tr.Root()
	if !hasRoot {
		return "(empty tree)", nil
	}
	sb := &strings.Builder{}
	if err := inspectNode(ctx, tr.Store(), rootID, 0, sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func inspectNode(
	ctx context.Context, store *nodestore.Store[string, []byte], id nodestore.NodeID, depth int, sb *strings.Builder,
) error {
	pinned, err := store.Acquire(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to acquire node %s: %w", id, err)
	}
	n := pinned.Node
	indent := strings.Repeat("  ", depth)
	c := colorFor(id)

	if n.IsLeaf() {
		c.Fprintf(sb, "%s%s leaf elements=%d epsilon=%.2f\n", indent, id, n.ElementCount(), n.Epsilon())
		pinned.Release()
		return nil
	}

	c.Fprintf(sb, "%s%s inner pivots=%d buffered=%d epsilon=%.2f maxPivots=%d maxMessages=%d\n",
		indent, id, n.PivotCount(), n.ElementCount(), n.Epsilon(), n.MaxPivots(), n.MaxMessages())

	var children []nodestore.ChildInfo
	n.Pivots(func(_ string, info nodestore.ChildInfo) bool {
		children = append(children, info)
		return true
	})
	pinned.Release()

	for _, info := range children {
		if err := inspectNode(ctx, store, info.ChildID, depth+1, sb); err != nil {
			return err
		}
	}
	return nil
}

var (
	inspectCount       int
	inspectKeySize     int
	inspectValueSize   int
	inspectMaxNodeSize int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "insert synthetic data into a fresh in-memory tree and print its shape",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		tr := newDemoTree("", inspectMaxNodeSize, false)
		rng := rand.New(rand.NewSource(1))
		keys := make([]string, inspectCount)
		for i := range keys {
			keys[i] = randKeyN(rng, i, inspectKeySize)
		}
		for _, k := range keys {
			checkErr(tr.Insert(ctx, k, randValueN(rng, inspectValueSize)))
		}
		checkErr(tr.Sync(ctx))

		s, err := inspectTree(ctx, tr)
		checkErr(err)
		fmt.Println(s)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().IntVarP(&inspectCount, "count", "n", 200, "number of keys to insert before inspecting")
	inspectCmd.Flags().IntVarP(&inspectKeySize, "keysize", "k", 16, "key size in bytes")
	inspectCmd.Flags().IntVarP(&inspectValueSize, "valuesize", "v", 32, "value size in bytes")
	inspectCmd.Flags().IntVarP(&inspectMaxNodeSize, "max-node-size", "", 32, "target node capacity")
}
