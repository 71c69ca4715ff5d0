package cmd

import (
	"fmt"
	"io"
)

const banner = `
  ____                              _   
 | __ )  ___  __ _ _   _  ___  ___| |_ 
 |  _ \ / _ \/ _` + "`" + ` | | | |/ _ \/ __| __|
 | |_) |  __/ (_| | |_| |  __/\__ \ |_ 
 |____/ \___|\__, |\__,_|\___||___/\__|
                |_|                    
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  License Service - Version %s\x1b[0m\n\n", Version)
}
