package fixtures

// Page is a static fixture served as HTML.
type Page struct {
	Path        string
	Title       string
	Description string
	HTML        string
}

// Pages returns the static fixture pages.
func Pages() []Page {
	return []Page{
		{
			Path:        "/solid",
			Title:       "Solid",
			Description: "Single colour page; every pixel of a capture is #cc0000.",
			HTML: `<!DOCTYPE html>
<html>
<head><title>Solid</title>
<style>html, body { margin: 0; height: 100%; background: #cc0000; }</style>
</head>
<body></body>
</html>`,
		},
		{
			Path:        "/viewport",
			Title:       "Viewport",
			Description: "Prints the window size the page sees.",
			HTML: `<!DOCTYPE html>
<html>
<head><title>Viewport</title>
<style>body { font: 48px system-ui, sans-serif; margin: 40px; }</style>
</head>
<body>
<div id="size"></div>
<script>
function show() { document.getElementById('size').textContent = window.innerWidth + 'x' + window.innerHeight; }
window.addEventListener('resize', show);
show();
</script>
</body>
</html>`,
		},
		{
			Path:        "/tall",
			Title:       "Tall",
			Description: "Content much taller than any viewport; captures show only the top.",
			HTML: `<!DOCTYPE html>
<html>
<head><title>Tall</title>
<style>
body { margin: 0; }
.band { height: 400px; }
.band:nth-child(odd) { background: #0057b8; }
.band:nth-child(even) { background: #ffd700; }
</style>
</head>
<body>
<div class="band"></div><div class="band"></div><div class="band"></div>
<div class="band"></div><div class="band"></div><div class="band"></div>
</body>
</html>`,
		},
		{
			Path:        "/unicode",
			Title:       "Ünïcödé ✓",
			Description: "Non-ASCII title and text.",
			HTML: `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Ünïcödé ✓</title></head>
<body><h1>Grüße, 世界</h1></body>
</html>`,
		},
	}
}

// hangingHTML references an image that never finishes, so the load event
// does not fire while the page itself is already painted.
const hangingHTML = `<!DOCTYPE html>
<html>
<head><title>Hanging</title></head>
<body style="background:#2e7d32"><h1>Still loading</h1><img src="/stall.png" alt=""></body>
</html>`

const slowHTML = `<!DOCTYPE html>
<html>
<head><title>Slow</title></head>
<body style="background:#6a1b9a"><h1>Slow response</h1></body>
</html>`
