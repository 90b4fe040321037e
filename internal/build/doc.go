// Package build runs the content pipeline as an ordered list of stages:
// lifecycle hooks for config setup, collection discovery, entry loading and
// entry preparation. The first fatal stage error aborts the remaining stages;
// warnings are recorded on the Report and the build continues.
package build
