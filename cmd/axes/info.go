package main

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"axes/internal/projectindex"
	"axes/internal/resolvedconfig"
	"axes/pkg/pathutil"
)

// infoCommand shows a project's identity and resolved configuration with
// per-entry source-layer attribution (SPEC_FULL.md SUPPLEMENTED FEATURES:
// "info source-layer attribution" — ResolvedConfig.Script/Var already
// report the UUID of the layer a value was found in).
func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show a project's identity and resolved configuration",
		ArgsUsage: "[ctx]",
		Action: func(c *cli.Context) error {
			ctxStr := "."
			if c.NArg() > 0 {
				ctxStr = c.Args().First()
			}
			p, err := resolvePaths()
			if err != nil {
				return err
			}
			guard, err := loadGuard(p)
			if err != nil {
				return err
			}
			rc, err := targetProject(guard, p.cacheRoot, ctxStr)
			if err != nil {
				return err
			}
			printInfo(guard.View(), rc)
			return guard.Persist()
		},
	}
}

func printInfo(idx *projectindex.GlobalIndex, rc *resolvedconfig.ResolvedConfig) {
	fmt.Printf("Project:  %s\n", rc.QualifiedName)
	fmt.Printf("UUID:     %s\n", rc.UUID)
	fmt.Printf("Root:     %s\n", rc.ProjectRoot)
	if desc := rc.Description(); desc != nil {
		fmt.Printf("About:    %s\n", *desc)
	}
	if v := rc.Version(); v != nil {
		fmt.Printf("Version:  %s\n", *v)
	}

	globalRoot := idx.Projects[projectindex.RootUUID].Path

	fmt.Println("\nAncestry (root -> leaf):")
	for _, id := range rc.Hierarchy {
		name, _ := idx.QualifiedName(id)
		marker := " "
		if id == rc.UUID {
			marker = "*"
		}
		relPath := pathutil.ToRelative(idx.Projects[id].Path, globalRoot)
		fmt.Printf("  %s %s (%s) %s\n", marker, name, id, relPath)
	}

	fmt.Println("\nScripts (source layer):")
	for _, name := range rc.ScriptNames() {
		if _, src, ok := rc.Script(name); ok {
			srcName, _ := idx.QualifiedName(src)
			fmt.Printf("  %-20s %s\n", name, srcName)
		}
	}
}

// treeCommand prints the child projects under ctx (full recursive tree
// rendering/styling is an out-of-scope dispatcher concern; this is the thin
// plumbing the core can support directly, per spec.md §1).
func treeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "list the descendants of a project",
		ArgsUsage: "[ctx]",
		Action: func(c *cli.Context) error {
			ctxStr := "."
			if c.NArg() > 0 {
				ctxStr = c.Args().First()
			}
			p, err := resolvePaths()
			if err != nil {
				return err
			}
			guard, err := loadGuard(p)
			if err != nil {
				return err
			}
			id, err := resolveUUID(guard, ctxStr)
			if err != nil {
				return err
			}
			printTree(guard.View(), id, 0)
			return guard.Persist()
		},
	}
}

func printTree(idx *projectindex.GlobalIndex, id uuid.UUID, depth int) {
	entry, ok := idx.Projects[id]
	if !ok {
		return
	}
	name := entry.Name
	if id == projectindex.RootUUID {
		name = "global"
	}
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	fmt.Println(name)

	children := idx.Children(id)
	sort.Slice(children, func(i, j int) bool {
		return idx.Projects[children[i]].Name < idx.Projects[children[j]].Name
	})
	for _, child := range children {
		printTree(idx, child, depth+1)
	}
}
