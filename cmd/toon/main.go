// Command toon converts between JSON and TOON on the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/toonfmt/go-toon/internal/decoder"
	"github.com/toonfmt/go-toon/internal/encoder"
	"github.com/toonfmt/go-toon/internal/jsonbridge"
	"github.com/toonfmt/go-toon/internal/lexical"
)

func main() {
	app := cli.NewApp()
	app.Name = "toon"
	app.Usage = "Convert between JSON and TOON"
	app.EnableBashCompletion = true

	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Usage:     "Encode a JSON document as TOON",
			UsageText: "toon encode [options] [file]",
			Description: `
The encode command reads a JSON document from the given file, or from
standard input when no file is given, and writes the TOON encoding to
standard output:

$ echo '{"tags":["admin","ops"]}' | toon encode
tags[2]: admin,ops`,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "indent",
					Aliases: []string{"i"},
					Usage:   "spaces per indentation level (1-8)",
					Value:   2,
				},
				&cli.StringFlag{
					Name:    "delimiter",
					Aliases: []string{"d"},
					Usage:   "array delimiter: 'comma', 'tab' or 'pipe'",
					Value:   "comma",
				},
				&cli.BoolFlag{
					Name:  "length-marker",
					Usage: "prepend '#' to array header counts",
				},
			},
			Action: func(c *cli.Context) error {
				return runEncode(c)
			},
		},
		{
			Name:      "decode",
			Usage:     "Decode a TOON document to JSON",
			UsageText: "toon decode [options] [file]",
			Description: `
The decode command reads a TOON document from the given file, or from
standard input when no file is given, and writes compact JSON to
standard output:

$ echo 'tags[2]: admin,ops' | toon decode
{"tags":["admin","ops"]}`,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:    "indent",
					Aliases: []string{"i"},
					Usage:   "spaces per indentation level (1-8)",
					Value:   2,
				},
				&cli.BoolFlag{
					Name:  "lenient",
					Usage: "disable strict validation",
				},
			},
			Action: func(c *cli.Context) error {
				return runDecode(c)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runEncode(c *cli.Context) error {
	indent := c.Int("indent")
	if indent < 1 || indent > 8 {
		return cli.Exit("indent must be between 1 and 8", 2)
	}
	delim, err := parseDelimiter(c.String("delimiter"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	data, err := readInput(c.Args().First())
	if err != nil {
		return err
	}
	tree, err := jsonbridge.Decode(data)
	if err != nil {
		return err
	}

	out := encoder.Encode(tree, encoder.Options{
		IndentSize:   indent,
		Delimiter:    delim,
		LengthMarker: c.Bool("length-marker"),
	})
	_, err = fmt.Fprintln(os.Stdout, out)
	return err
}

func runDecode(c *cli.Context) error {
	indent := c.Int("indent")
	if indent < 1 || indent > 8 {
		return cli.Exit("indent must be between 1 and 8", 2)
	}

	data, err := readInput(c.Args().First())
	if err != nil {
		return err
	}
	tree, err := decoder.Decode(string(data), decoder.Options{
		IndentSize: indent,
		Strict:     !c.Bool("lenient"),
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, string(jsonbridge.Encode(tree)))
	return err
}

func parseDelimiter(name string) (lexical.Delimiter, error) {
	switch name {
	case "comma":
		return lexical.Comma, nil
	case "tab":
		return lexical.Tab, nil
	case "pipe":
		return lexical.Pipe, nil
	default:
		return lexical.Comma, fmt.Errorf("unknown delimiter %q (want 'comma', 'tab' or 'pipe')", name)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
