package tools

import "strings"

// Sentinel-2 evalscripts, keyed by analysis layer
var evalscripts = map[string]string{
	"TRUE_COLOR": `//VERSION=3
function setup() {
  return { input: ["B04", "B03", "B02"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  return [Math.min(1, sample.B04 * 2.5), Math.min(1, sample.B03 * 2.5), Math.min(1, sample.B02 * 2.5)];
}`,

	"VEGETATION": `//VERSION=3
function setup() {
  return { input: ["B04", "B08"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  let ndvi = (sample.B08 - sample.B04) / (sample.B08 + sample.B04);
  if (ndvi < 0)         return [0.5, 0.5, 0.5];
  else if (ndvi < 0.2)  return [0.8, 0.6, 0.3];
  else if (ndvi < 0.4)  return [0.6, 0.8, 0.2];
  else if (ndvi < 0.6)  return [0.2, 0.7, 0.2];
  else                  return [0.0, 0.5, 0.0];
}`,

	"WATER": `//VERSION=3
function setup() {
  return { input: ["B03", "B08"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  let ndwi = (sample.B03 - sample.B08) / (sample.B03 + sample.B08);
  if (ndwi < 0)         return [0.3, 0.2, 0.1];
  else if (ndwi < 0.2)  return [0.4, 0.5, 0.7];
  else if (ndwi < 0.4)  return [0.2, 0.4, 0.9];
  else                  return [0.0, 0.2, 1.0];
}`,

	"MOISTURE": `//VERSION=3
function setup() {
  return { input: ["B08", "B11"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  let ndmi = (sample.B08 - sample.B11) / (sample.B08 + sample.B11);
  ndmi = (ndmi + 1) / 2;
  return [ndmi * 0.2, ndmi * 0.4, ndmi * 0.7];
}`,

	"FLOOD": `//VERSION=3
function setup() {
  return { input: ["B03", "B08", "B11"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  let ndwi = (sample.B03 - sample.B08) / (sample.B03 + sample.B08);
  let ndmi = (sample.B08 - sample.B11) / (sample.B08 + sample.B11);
  ndwi = (ndwi + 1) / 2;
  ndmi = (ndmi + 1) / 2;
  return [ndwi * 0.5, ndmi * 0.5, ndwi];
}`,

	"URBAN": `//VERSION=3
function setup() {
  return { input: ["B12", "B11", "B04"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  return [2.5 * sample.B12, 2.5 * sample.B11, 2.5 * sample.B04];
}`,

	"CLOUDS": `//VERSION=3
function setup() {
  return { input: ["B01", "B02", "B03"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  return [sample.B01 * 4.0, sample.B02 * 4.0, sample.B03 * 4.0];
}`,

	"SNOW": `//VERSION=3
function setup() {
  return { input: ["B03", "B11"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  let ndsi = (sample.B03 - sample.B11) / (sample.B03 + sample.B11);
  return [ndsi, ndsi, ndsi];
}`,
}

const fallbackEvalscript = `//VERSION=3
function setup() {
  return { input: ["B04", "B03", "B02"], output: { bands: 3 } };
}
function evaluatePixel(sample) {
  return [sample.B04, sample.B03, sample.B02];
}`

// EvalscriptForLayer returns the evalscript for layer, case-insensitively.
// Unknown layers get a plain true-colour render.
func EvalscriptForLayer(layer string) string {
	if script, ok := evalscripts[strings.ToUpper(strings.TrimSpace(layer))]; ok {
		return script
	}
	return fallbackEvalscript
}
