package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilex/internal/tileset"
)

// Version is the tilex release
const Version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tilex [flags] IMAGE",
	Short: "Extract the unique tiles of a tile-based image",
	Long: `tilex slices an image into a grid of equally sized cells and keeps one
copy of every distinct cell.

Cells that match an earlier tile within the given tolerance, optionally when
mirrored horizontally and/or vertically, reuse that tile. The result is written
as a packed tileset image, a JSON map, a Tiled TMX map and a preview rebuilt
from the tiles.

Examples:
  # Extract 16x16 tiles into ./out
  tilex -W 16 -H 16 -o out level.png

  # Allow mirrored matches and a little noise
  tilex -W 8 -H 8 --flip --tolerance 64 -o out screenshot.png

  # Write compressed TMX layer data and an 8 column tileset
  tilex -W 16 -H 16 --tmx-encoding base64 --tmx-compression zstd --columns 8 -o out level.png

  # Start HTTP server
  tilex serve --port 8080`,
	Args: cobra.MaximumNArgs(1),
	// If no subcommand is specified and we have args, run the extract command
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}
		return runExtract(cmd, args)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [flags] IMAGE",
	Short: "Extract the unique tiles of an image (same as the root command)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tilex.yaml)")

	// Extraction flags, shared by the root and extract commands
	flags := rootCmd.PersistentFlags()
	flags.IntP("tile-width", "W", 0, "tile width in pixels (required)")
	flags.IntP("tile-height", "H", 0, "tile height in pixels (required)")
	flags.IntP("tolerance", "t", 0, "largest summed channel difference that still matches")
	flags.BoolP("flip", "f", false, "match horizontally and vertically mirrored tiles")

	// Output options
	flags.StringP("output-dir", "o", ".", "directory to write the output files to")
	flags.Int("columns", 0, "columns of the packed tileset (0: square layout)")
	flags.String("tileset-name", "tiles.png", "file name of the packed tileset")
	flags.String("tmx-encoding", "csv", "TMX layer encoding (xml|csv|base64)")
	flags.String("tmx-compression", "", "TMX layer compression with base64 encoding (zlib|gzip|zstd)")
	flags.BoolP("quiet", "q", false, "only print errors")

	// Bind flags to viper
	for _, name := range []string{
		"tile-width", "tile-height", "tolerance", "flip",
		"output-dir", "columns", "tileset-name", "tmx-encoding", "tmx-compression", "quiet",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}

	rootCmd.AddCommand(extractCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tilex" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tilex")
	}

	viper.SetEnvPrefix("tilex")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	tileWidth := viper.GetInt("tile-width")
	tileHeight := viper.GetInt("tile-height")

	if tileWidth == 0 || tileHeight == 0 {
		return fmt.Errorf("tile size is required (use --tile-width and --tile-height)")
	}

	opts := &tileset.Options{
		Input:          args[0],
		OutputDir:      viper.GetString("output-dir"),
		TileWidth:      tileWidth,
		TileHeight:     tileHeight,
		Tolerance:      viper.GetInt("tolerance"),
		AllowFlipping:  viper.GetBool("flip"),
		Columns:        viper.GetInt("columns"),
		TilesetName:    viper.GetString("tileset-name"),
		TMXEncoding:    viper.GetString("tmx-encoding"),
		TMXCompression: viper.GetString("tmx-compression"),
	}

	stderr := cmd.ErrOrStderr()
	quiet := viper.GetBool("quiet")
	if quiet {
		stderr = io.Discard
	}

	builder := tileset.NewBuilder(opts, stderr, log.New(stderr, "", 0))
	summary, err := builder.Run()
	if err != nil {
		return err
	}

	if !quiet {
		summary.Print(cmd.OutOrStdout())
	}
	return nil
}
