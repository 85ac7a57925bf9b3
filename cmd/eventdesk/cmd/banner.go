package cmd

import (
	"fmt"
	"io"
)

const banner = `
  _____                 _   ____            _    
 | ____|_   _____ _ __ | |_|  _ \  ___  ___| | __
 |  _| \ \ / / _ \ '_ \| __| | | |/ _ \/ __| |/ /
 | |___ \ V /  __/ | | | |_| |_| |  __/\__ \   < 
 |_____| \_/ \___|_| |_|\__|____/ \___||___/_|\_\
                                                 
`

func printBanner(w io.Writer, role string) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Event Registration Desk %s - Version %s\x1b[0m\n\n", role, Version)
}
