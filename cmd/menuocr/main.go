// Command menuocr runs clinic menu files through OCR and LLM extraction from
// the command line.
package main

import (
	"github.com/joseph-ayodele/clinic-menu-ocr/internal/common"
)

func main() {
	common.LoadDotEnv()
	Execute()
}
