package display

import (
	"fmt"
	"io"

	"github.com/backmassage/nifbatch/internal/term"
)

// PrintBanner prints the ASCII art banner (magenta when colors are on) and
// the version.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Paint(term.Magenta, `       _  __ _           _       _
 _ __ (_)/ _| |__   __ _| |_ ___| |__
| '_ \| | |_| '_ \ / _`+"`"+` | __/ __| '_ \
| | | | |  _| |_) | (_| | || (__| | | |
|_| |_|_|_| |_.__/ \__,_|\__\___|_| |_|
`))
	fmt.Fprintf(w, "LXF/LXFML -> NIF batch converter %s\n\n", version)
}
