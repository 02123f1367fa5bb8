// Command unixfs is a thin command-line shell around the image, terminal,
// and geometry packages: one subcommand per invocation, each loading an
// image file, performing one operation, and (for mutating commands) saving
// the result back out. It is not a reimplementation of the interactive
// line-oriented interpreter the original project builds on top of this
// library — that tokenizer/REPL loop is out of scope — but the command
// names mirror its vocabulary. Grounded on dargueta-disko/cmd/main.go's
// urfave/cli/v2 App{Commands: ...} shape.
package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yusufbadar/unixfs/allocator"
	"github.com/yusufbadar/unixfs/filehandle"
	"github.com/yusufbadar/unixfs/geometry"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/pathresolver"
	"github.com/yusufbadar/unixfs/retcode"
	"github.com/yusufbadar/unixfs/terminal"
)

func main() {
	app := &cli.App{
		Usage: "Work with unixfs image files",
		Commands: []*cli.Command{
			newCmd,
			fsCmd,
			availableCmd,
			lsCmd,
			treeCmd,
			newfileCmd,
			newdirCmd,
			rmfileCmd,
			rmdirCmd,
			cdCmd,
			catCmd,
			writeCmd,
			dumpCmd,
			patchCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func imageFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "image", Required: true, Usage: "path to the image file"}
}

func pathFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "cwd", Value: "", Usage: "working directory path to resolve relative paths against"}
}

func loadImage(path string) (*image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return image.Load(f)
}

func saveImage(path string, img *image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return img.Save(f)
}

func openTerminal(c *cli.Context) (*terminal.Terminal, error) {
	img, err := loadImage(c.String("image"))
	if err != nil {
		return nil, err
	}
	term := terminal.New(img)
	if cwd := c.String("cwd"); cwd != "" {
		if err := term.ChangeDirectory(cwd); err != nil {
			return nil, err
		}
	}
	return term, nil
}

var newCmd = &cli.Command{
	Name:      "new",
	Usage:     "create a new, empty image file from a named geometry preset",
	ArgsUsage: "OUTPUT_PATH",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "geometry", Value: "small", Usage: fmt.Sprintf("one of: %v", geometry.Names())},
	},
	Action: func(c *cli.Context) error {
		g, err := geometry.Get(c.String("geometry"))
		if err != nil {
			return err
		}
		img, err := image.New(g.InodeCount, g.DBlockCount)
		if err != nil {
			return err
		}
		return saveImage(c.Args().First(), img)
	},
}

var fsCmd = &cli.Command{
	Name:      "fs",
	Usage:     "print image-wide statistics",
	Flags:     []cli.Flag{imageFlag()},
	Action: func(c *cli.Context) error {
		img, err := loadImage(c.String("image"))
		if err != nil {
			return err
		}
		fmt.Printf("inodes: %d\n", len(img.Inodes))
		fmt.Printf("dblocks: %d\n", img.DBlockCount)
		if err := image.Check(img); err != nil {
			fmt.Printf("consistency check failed:\n%s\n", err.Error())
		}
		return nil
	},
}

var availableCmd = &cli.Command{
	Name:  "available",
	Usage: "print available inode and dblock counts",
	Flags: []cli.Flag{imageFlag()},
	Action: func(c *cli.Context) error {
		img, err := loadImage(c.String("image"))
		if err != nil {
			return err
		}
		fmt.Printf("available inodes: %d\n", availableInodes(img))
		fmt.Printf("available dblocks: %d\n", availableDBlocks(img))
		return nil
	},
}

var lsCmd = &cli.Command{
	Name:      "ls",
	Usage:     "list a directory's contents",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		term, err := openTerminal(c)
		if err != nil {
			return err
		}
		path := c.Args().First()
		if path == "" {
			path = "."
		}
		if err := term.List(os.Stdout, path); err != nil {
			retcode.Diagnostic(os.Stdout, err)
		}
		return nil
	},
}

var treeCmd = &cli.Command{
	Name:      "tree",
	Usage:     "display a directory as a tree",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		term, err := openTerminal(c)
		if err != nil {
			return err
		}
		path := c.Args().First()
		if path == "" {
			path = "."
		}
		if err := term.Tree(os.Stdout, path); err != nil {
			retcode.Diagnostic(os.Stdout, err)
		}
		return nil
	},
}

var newfileCmd = &cli.Command{
	Name:      "newfile",
	Usage:     "create an empty file",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		return mutate(c, func(term *terminal.Terminal) error {
			return term.NewFile(c.Args().First(), image.PermRead|image.PermWrite)
		})
	},
}

var newdirCmd = &cli.Command{
	Name:      "newdir",
	Usage:     "create an empty directory",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		return mutate(c, func(term *terminal.Terminal) error {
			return term.NewDirectory(c.Args().First())
		})
	},
}

var rmfileCmd = &cli.Command{
	Name:      "rmfile",
	Usage:     "remove a file",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		return mutate(c, func(term *terminal.Terminal) error {
			return term.RemoveFile(c.Args().First())
		})
	},
}

var rmdirCmd = &cli.Command{
	Name:      "rmdir",
	Usage:     "remove an empty directory",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		return mutate(c, func(term *terminal.Terminal) error {
			return term.RemoveDirectory(c.Args().First())
		})
	},
}

var cdCmd = &cli.Command{
	Name:      "cd",
	Usage:     "print the path the working directory would resolve to after a cd",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		term, err := openTerminal(c)
		if err != nil {
			return err
		}
		if err := term.ChangeDirectory(c.Args().First()); err != nil {
			retcode.Diagnostic(os.Stdout, err)
			return nil
		}
		fmt.Println(term.GetPathString())
		return nil
	},
}

var catCmd = &cli.Command{
	Name:      "cat",
	Usage:     "print a file's contents",
	ArgsUsage: "PATH",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		term, err := openTerminal(c)
		if err != nil {
			return err
		}
		inode, err := resolveFile(term, c.Args().First())
		if err != nil {
			retcode.Diagnostic(os.Stdout, err)
			return nil
		}
		h, err := openHandle(term, inode)
		if err != nil {
			retcode.Diagnostic(os.Stdout, err)
			return nil
		}
		buf := make([]byte, fileSize(term, inode))
		n, err := h.Read(buf)
		if err != nil {
			retcode.Diagnostic(os.Stdout, err)
			return nil
		}
		os.Stdout.Write(buf[:n])
		return nil
	},
}

var writeCmd = &cli.Command{
	Name:      "write",
	Usage:     "overwrite/append text to a file starting at an offset",
	ArgsUsage: "PATH OFFSET TEXT",
	Flags:     []cli.Flag{imageFlag(), pathFlag()},
	Action: func(c *cli.Context) error {
		return mutate(c, func(term *terminal.Terminal) error {
			args := c.Args()
			path, offsetStr, text := args.Get(0), args.Get(1), args.Get(2)
			inode, err := resolveFile(term, path)
			if err != nil {
				return err
			}
			var offset uint64
			fmt.Sscanf(offsetStr, "%d", &offset)
			h, err := openHandle(term, inode)
			if err != nil {
				return err
			}
			h.Offset = offset
			_, err = h.Write([]byte(text))
			return err
		})
	},
}

var dumpCmd = &cli.Command{
	Name:  "dump",
	Usage: "print a debug dump of the image structure",
	Flags: []cli.Flag{imageFlag()},
	Action: func(c *cli.Context) error {
		img, err := loadImage(c.String("image"))
		if err != nil {
			return err
		}
		image.Dump(os.Stdout, img, image.DumpAll, availableInodes(img), availableDBlocks(img))
		return nil
	},
}

var patchCmd = &cli.Command{
	Name:      "patch",
	Usage:     "overwrite raw bytes in the data block arena at an absolute offset",
	ArgsUsage: "OFFSET HEX_BYTES",
	Flags:     []cli.Flag{imageFlag()},
	Action: func(c *cli.Context) error {
		img, err := loadImage(c.String("image"))
		if err != nil {
			return err
		}
		var offset int
		fmt.Sscanf(c.Args().Get(0), "%d", &offset)
		data, err := hex.DecodeString(c.Args().Get(1))
		if err != nil {
			return err
		}
		if err := img.PatchBytes(offset, data); err != nil {
			return err
		}
		return saveImage(c.String("image"), img)
	},
}

func availableInodes(img *image.Image) int  { return allocator.AvailableInodes(img) }
func availableDBlocks(img *image.Image) int { return allocator.AvailableDBlocks(img) }

// resolveFile resolves path (relative to term's working directory) and
// confirms it names a DATA_FILE before the inode is handed to
// filehandle.Open, the same file-type check terminal.RemoveFile performs.
func resolveFile(term *terminal.Terminal, path string) (uint16, error) {
	inode, err := pathresolver.Resolve(term.Image, term.CWD, path)
	if err != nil {
		return 0, retcode.ErrFileNotFound
	}
	if term.Image.Inodes[inode].Decode().Type != image.DataFile {
		return 0, retcode.ErrInvalidFileType
	}
	return inode, nil
}

func openHandle(term *terminal.Terminal, inode uint16) (*filehandle.Handle, error) {
	return filehandle.Open(term.Image, inode)
}

func fileSize(term *terminal.Terminal, inode uint16) uint64 {
	return term.Image.Inodes[inode].Decode().Size
}

func mutate(c *cli.Context, fn func(*terminal.Terminal) error) error {
	term, err := openTerminal(c)
	if err != nil {
		return err
	}
	if err := fn(term); err != nil {
		retcode.Diagnostic(os.Stdout, err)
		return nil
	}
	return saveImage(c.String("image"), term.Image)
}
