package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/BurntSushi/toml"
	raven "github.com/getsentry/raven-go"

	"github.com/gmh-format/gmh/gmh"
	"github.com/gmh-format/gmh/model"
	"github.com/gmh-format/gmh/util"
)

var (
	configPath = flag.String("config", "", "path to a TOML configuration file")
	useMmap    = flag.Bool("mmap", false, "use memory-mapped reads")
	verbose    = flag.Bool("v", false, "log each read and write")
	usage      = `
gmh <command> <command arguments>

Possible commands:
    info <file>

    benchmark <file> [iterations]

    transcode <file> [target file]
`
)

// Options settable from the configuration file. Command line flags win
// where both are given.
type config struct {
	MaxVoxelBytes int64
	Mmap          bool
	Verbose       bool
	SentryDSN     string
}

func main() {
	flag.Parse()

	var conf config
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &conf); err != nil {
			log.Fatalf("reading config %s: %s", *configPath, err)
		}
	}
	if conf.SentryDSN != "" {
		raven.SetDSN(conf.SentryDSN)
	}
	adapter := &gmh.Adapter{
		Codec:   gmh.Codec{MaxVoxelBytes: conf.MaxVoxelBytes},
		Mmap:    conf.Mmap || *useMmap,
		Verbose: conf.Verbose || *verbose,
	}

	args := flag.Args()
	if len(args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}

	var err error
	switch args[0] {
	case "info":
		err = doinfo(adapter, args[1])
	case "benchmark":
		iterations := 10
		if len(args) >= 3 {
			iterations, err = strconv.Atoi(args[2])
			if err != nil || iterations < 1 {
				log.Fatalf("bad iteration count %q", args[2])
			}
		}
		err = dobenchmark(adapter, args[1], iterations)
	case "transcode":
		var target string
		if len(args) >= 3 {
			target = args[2]
		}
		err = dotranscode(adapter, args[1], target)
	default:
		fmt.Println(usage)
		os.Exit(2)
	}
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		log.Fatal(err)
	}
}

func doinfo(a *gmh.Adapter, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	ctr, err := a.Read(path)
	if err != nil {
		return err
	}
	m := ctr.Manifest
	w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", path)
	fmt.Fprintf(w, "Size:\t%s\n", util.FormatByteCount(fi.Size()))
	fmt.Fprintf(w, "Identifier:\t%s\n", ctr.Identifier)
	fmt.Fprintf(w, "Dimensions:\t%v\n", m.Image.Size)
	fmt.Fprintf(w, "Precision:\t%d bytes/voxel\n", m.Image.PrecisionBytes)
	fmt.Fprintf(w, "Voxel size:\t%s\n", vectorInfo(m.Image.VoxelSize))
	fmt.Fprintf(w, "Voxel spacing:\t%s\n", vectorInfo(m.Image.VoxelSpacing))
	fmt.Fprintf(w, "Slices:\t%d\n", len(m.Slices()))
	fmt.Fprintf(w, "Segments:\t%d\n", len(m.Segments()))
	w.Flush()
	for _, seg := range m.Segments() {
		fmt.Println("---")
		w = tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
		fmt.Fprintf(w, "Segment:\t%s\n", seg.Identifier)
		if seg.BoundingBox != nil {
			fmt.Fprintf(w, "Bounding box:\t%v - %v\n", seg.BoundingBox[0], seg.BoundingBox[1])
		}
		if seg.Color != nil {
			fmt.Fprintf(w, "Color:\t%v\n", *seg.Color)
		}
		fmt.Fprintf(w, "Mask:\t%v\n", seg.Mask != nil)
		w.Flush()
	}
	return nil
}

func vectorInfo(v *model.Vector3) string {
	if v == nil {
		return "unknown"
	}
	return fmt.Sprintf("%gmm x %gmm x %gmm", v[0], v[1], v[2])
}

func dobenchmark(a *gmh.Adapter, path string, iterations int) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Printf("Image: %s\n", path)
	fmt.Printf("Size: %s\n", util.FormatByteCount(fi.Size()))
	fmt.Printf("Iterations: %d\n", iterations)
	fmt.Printf("Use mmap: %v\n", a.Mmap)
	fmt.Println()
	fmt.Println("Running benchmark...")

	start := time.Now()
	for i := 0; i < iterations; i++ {
		if _, err := a.Read(path); err != nil {
			return err
		}
	}
	duration := time.Since(start)

	fmt.Println()
	fmt.Printf("Total time: %.4fs\n", duration.Seconds())
	fmt.Printf("Time per iteration: %.4fs\n", duration.Seconds()/float64(iterations))
	return nil
}

// dotranscode decodes a container and writes it back out. With no target
// the source file is rewritten in place through a backup, so the original
// survives a failed write.
func dotranscode(a *gmh.Adapter, path, target string) error {
	ctr, err := a.Read(path)
	if err != nil {
		return err
	}
	if target != "" {
		return a.Write(ctr, target, false)
	}
	backup := path + ".bak"
	if err := os.Rename(path, backup); err != nil {
		return err
	}
	if err := a.Write(ctr, path, false); err != nil {
		os.Rename(backup, path)
		return err
	}
	return os.Remove(backup)
}
