package server

import (
	"fmt"
	"strings"
)

const fallbackTemplate = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <title>Redirecting...</title>
  </head>
  <body>
    <script>window.location.href = '%s';</script>
  </body>
</html>
`

// jsStringEscaper makes a URL safe inside a single-quoted script literal.
// URL syntax (?, &, =, #, %) is left as is.
var jsStringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`<`, `\u003C`,
	`>`, `\u003E`,
	"\n", `\n`,
	"\r", `\r`,
	"\u2028", `\u2028`,
	"\u2029", `\u2029`,
)

// FallbackPage is served when rendering fails. Browsers follow the script to
// the live page; crawlers see the 500 and retry later.
func FallbackPage(targetURL string) []byte {
	return []byte(fmt.Sprintf(fallbackTemplate, jsStringEscaper.Replace(targetURL)))
}
