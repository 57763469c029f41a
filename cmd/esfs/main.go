package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/weberc2/sectorfs/pkg/backup"
	"github.com/weberc2/sectorfs/pkg/config"
	"github.com/weberc2/sectorfs/pkg/device"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/logging"
	"github.com/weberc2/sectorfs/pkg/manifest"
	"github.com/weberc2/sectorfs/pkg/objectstore"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func main() {
	eepromFlag := cli.BoolFlag{
		Name:    "eeprom",
		Aliases: []string{"e"},
		Usage:   "address the secondary (eeprom) drive",
	}

	app := cli.App{
		Name:  "esfs",
		Usage: "manage a two-drive sector filesystem image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides the configured log level",
			},
		},
		Commands: []*cli.Command{{
			Name:        "format",
			Description: "create (or recreate) the images and format both drives",
			Action: withDevice(true, func(d *device.Device, ctx *cli.Context) error {
				if err := fs.Format(d.FileSystem); err != nil {
					return err
				}
				fmt.Println(d.Manifest.VolumeID)
				return nil
			}),
		}, {
			Name:        "check",
			Description: "mount both drives and report what was found",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				for _, id := range []DriveID{DrivePrimary, DriveSecondary} {
					sb, err := fs.SuperblockOf(d.FileSystem, id)
					if err != nil {
						return err
					}
					fmt.Printf(
						"drive %d: version %d, %d files, last uid %d\n",
						id,
						sb.Version,
						sb.FileCount,
						sb.LastUID,
					)
				}
				return nil
			}),
		}, {
			Name:        "ls",
			Aliases:     []string{"list"},
			Description: "list the files of a drive",
			Flags:       []cli.Flag{&eepromFlag},
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				path := ""
				if ctx.Bool(eepromFlag.Name) {
					path = SecondaryPrefix
				}
				return list(d.FileSystem, path, os.Stdout)
			}),
		}, {
			Name:        "put",
			Description: "copy a host file (or `-` for stdin) onto the device",
			ArgsUsage:   "HOSTPATH [NAME]",
			Flags:       []cli.Flag{&eepromFlag},
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				if ctx.NArg() < 1 {
					return cli.Exit("put: missing HOSTPATH", 2)
				}
				hostPath := ctx.Args().Get(0)
				secondary := ctx.Bool(eepromFlag.Name)
				name := deviceName(hostPath, secondary)
				if ctx.NArg() > 1 {
					name = secondaryName(ctx.Args().Get(1), secondary)
				}
				return put(d.FileSystem, hostPath, name)
			}),
		}, {
			Name:        "get",
			Description: "copy a device file to the host (stdout by default)",
			ArgsUsage:   "NAME [HOSTPATH]",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				if ctx.NArg() < 1 {
					return cli.Exit("get: missing NAME", 2)
				}
				return get(d.FileSystem, ctx.Args().Get(0), ctx.Args().Get(1))
			}),
		}, {
			Name:        "rm",
			Aliases:     []string{"remove", "delete"},
			Description: "remove device files",
			ArgsUsage:   "NAME...",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				for _, name := range ctx.Args().Slice() {
					if err := fs.Remove(d.FileSystem, name); err != nil {
						return err
					}
				}
				return nil
			}),
		}, {
			Name:        "mv",
			Aliases:     []string{"rename"},
			Description: "rename a device file within its drive",
			ArgsUsage:   "OLD NEW",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				if ctx.NArg() != 2 {
					return cli.Exit("mv: expected OLD and NEW", 2)
				}
				return fs.Rename(
					d.FileSystem,
					ctx.Args().Get(0),
					ctx.Args().Get(1),
				)
			}),
		}, {
			Name:        "stat",
			Description: "print the metadata of a device file",
			ArgsUsage:   "NAME",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				var info fs.FileInfo
				if err := fs.Stat(d.FileSystem, ctx.Args().First(), &info); err != nil {
					return err
				}
				data, err := yaml.Marshal(statOutput{
					Name:      info.Name,
					Drive:     int(info.Drive),
					Size:      int64(info.Size),
					UID:       uint32(info.UID),
					Start:     int(info.Start),
					Encrypted: info.Encrypted,
				})
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			}),
		}, {
			Name:        "df",
			Description: "report sector and flash page usage",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				return diskFree(d, os.Stdout)
			}),
		}, {
			Name:        "defrag",
			Description: "compact the flash translation layer",
			Action: withMounted(func(d *device.Device, ctx *cli.Context) error {
				before := d.FTL.UsedPages()
				if err := fs.Defrag(d.FileSystem); err != nil {
					return err
				}
				fmt.Printf("used pages: %d -> %d\n", before, d.FTL.UsedPages())
				return nil
			}),
		}, {
			Name:        "backup",
			Description: "push the images to the configured bucket",
			Action: withConfig(func(c *config.Config, logger *log.Logger, ctx *cli.Context) error {
				m, err := manifest.Load(imagePath(c, manifest.FileName))
				if err != nil {
					return err
				}
				b, err := newBackup(c, logger)
				if err != nil {
					return err
				}
				return b.Push(ctx.Context, m.VolumeID, c.ImageDir, device.Files)
			}),
		}, {
			Name:        "restore",
			Description: "pull a volume's images from the configured bucket",
			ArgsUsage:   "VOLUMEID",
			Action: withConfig(func(c *config.Config, logger *log.Logger, ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return cli.Exit("restore: expected VOLUMEID", 2)
				}
				b, err := newBackup(c, logger)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(c.ImageDir, 0o755); err != nil {
					return err
				}
				return b.Pull(ctx.Context, ctx.Args().First(), c.ImageDir, device.Files)
			}),
		}},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type statOutput struct {
	Name      string `yaml:"name"`
	Drive     int    `yaml:"drive"`
	Size      int64  `yaml:"size"`
	UID       uint32 `yaml:"uid"`
	Start     int    `yaml:"start"`
	Encrypted bool   `yaml:"encrypted"`
}

func withConfig(
	f func(*config.Config, *log.Logger, *cli.Context) error,
) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		c, err := config.Load(config.FilePath(ctx.String("config")))
		if err != nil {
			return err
		}
		level := c.LogLevel
		if override := ctx.String("log-level"); override != "" {
			level = override
		}
		logger, err := logging.New(os.Stderr, level)
		if err != nil {
			return err
		}
		return f(c, logger, ctx)
	}
}

func withDevice(
	create bool,
	f func(*device.Device, *cli.Context) error,
) cli.ActionFunc {
	return withConfig(func(c *config.Config, logger *log.Logger, ctx *cli.Context) (err error) {
		d, err := device.Open(c, logger, create)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := d.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return f(d, ctx)
	})
}

func withMounted(f func(*device.Device, *cli.Context) error) cli.ActionFunc {
	return withDevice(false, func(d *device.Device, ctx *cli.Context) error {
		if err := fs.Mount(d.FileSystem); err != nil {
			return err
		}
		return f(d, ctx)
	})
}

func imagePath(c *config.Config, name string) string {
	return filepath.Join(c.ImageDir, name)
}

func newBackup(c *config.Config, logger *log.Logger) (*backup.Backup, error) {
	if c.Backup.Bucket == "" {
		return nil, fmt.Errorf(
			"missing required configuration: backup.bucket / %s_BACKUP_BUCKET",
			config.EnvVarPrefix,
		)
	}
	store, err := objectstore.NewS3ObjectStore(c.Backup.Region)
	if err != nil {
		return nil, err
	}
	return backup.New(store, c.Backup.Bucket, c.Backup.Prefix, logger), nil
}

func list(fileSystem *fs.FileSystem, path string, w io.Writer) error {
	var cursor fs.DirCursor
	if err := fs.OpenDir(fileSystem, path, &cursor); err != nil {
		return err
	}
	defer fs.CloseDir(fileSystem, &cursor)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tUID\tSTART")
	for {
		var info fs.FileInfo
		if err := fs.ReadDir(fileSystem, &cursor, &info); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", info.Name, info.Size, info.UID, info.Start)
	}
	return tw.Flush()
}

func put(fileSystem *fs.FileSystem, hostPath, name string) error {
	var src io.Reader = os.Stdin
	if hostPath != "-" {
		file, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer file.Close()
		src = file
	}

	dst, err := fs.OpenFile(fileSystem, name, fs.ModeWrite|fs.ModeCreateAlways)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("copying `%s` to `%s`: %w", hostPath, name, err)
	}
	return dst.Close()
}

func get(fileSystem *fs.FileSystem, name, hostPath string) error {
	src, err := fs.OpenFile(fileSystem, name, fs.ModeRead)
	if err != nil {
		return err
	}
	defer src.Close()

	var dst io.Writer = os.Stdout
	if hostPath != "" && hostPath != "-" {
		file, err := os.Create(hostPath)
		if err != nil {
			return err
		}
		defer file.Close()
		dst = file
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying `%s` to `%s`: %w", name, hostPath, err)
	}
	return nil
}

func diskFree(d *device.Device, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DRIVE\tFILES\tUSED\tFREE")
	for _, id := range []DriveID{DrivePrimary, DriveSecondary} {
		sb, err := fs.SuperblockOf(d.FileSystem, id)
		if err != nil {
			return err
		}
		used, err := fs.Usage(d.FileSystem, id)
		if err != nil {
			return err
		}
		free, err := fs.FreeSectors(d.FileSystem, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", id, sb.FileCount, used, free)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(
		w,
		"flash pages: %d/%d used\n",
		d.FTL.UsedPages(),
		d.FTL.TotalPages(),
	)
	return err
}
