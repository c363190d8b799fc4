// Command-line code generation for git-derived version information.

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// Name of file to output with Go version code
	outputfile = flag.String("o", "", "")

	// Package the generated file belongs to.
	pkgName = flag.String("p", "vox", "")

	// Display usage if true.
	showHelp = flag.Bool("help", false, "")
)

const helpMessage = `
gen-version calls git to generate Go code with source code version info.

Usage: gen-version [-p package] -o version_git.go

      -o          =string   Go file to write
      -p          =string   Package of the generated file (default vox)
      -h, -help   (flag)    Show help message

`

const code = `// Code generated by gen-version. DO NOT EDIT.

package %s

func init() {
	gitVersion = %q
}
`

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if len(*outputfile) < 4 {
		fmt.Printf("The %q is required for this program\n", "-o foo.go")
		os.Exit(1)
	}

	gitPath, err := exec.LookPath("git")
	if err != nil {
		fmt.Printf("Unable to find git command; alter PATH?\nError: %v\n", err)
		os.Exit(1)
	}

	out, err := exec.Command(gitPath, "describe", "--abbrev=5", "--tags").Output()
	if err != nil {
		out = []byte("notag")
	}

	versionID := strings.TrimSpace(string(out))
	goCode := fmt.Sprintf(code, *pkgName, versionID)
	if err := os.WriteFile(*outputfile, []byte(goCode), 0644); err != nil {
		fmt.Printf("Error saving go code: %v\n", err)
		os.Exit(1)
	}
}
