// parser.go — Sample design generation for irysup init.
package design

// ExampleJSON returns a sample design.json for irysup init.
func ExampleJSON() string {
	return `{
  "imageUrl": "",
  "fontUrl": "",
  "backgroundUrl": "background.png",
  "text": "Write your text here",
  "canvasWidth": 1280,
  "canvasHeight": 720,
  "fontSize": 64,
  "fontColor": "#ffffff",
  "textPositionX": 120,
  "textPositionY": 80,
  "createdAt": "2025-01-01T00:00:00Z"
}`
}
