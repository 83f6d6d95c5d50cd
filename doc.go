// Package cvserve serves a Markdown CV kept in a git repository as HTML or,
// with the pdf query parameter, as a PDF download.
//
// # Request Flow
//
// Each request runs these stages:
//
//  1. Resolve the repository URL and file path (Secret Manager, then
//     environment, then defaults)
//  2. Clone, update or re-clone the local working copy
//  3. Read the file and render it through Goldmark
//  4. Wrap it for screen or print, printing to PDF when asked
//
// # Deployment
//
// ServeCV is registered with the Functions Framework as "ServeCV" and can be
// deployed as a Cloud Function directly. cmd/cvserve runs the same Handler
// as a standalone server with health and metrics endpoints.
//
// # Errors
//
// Configuration errors and git failures return 500 with an explanatory
// body; a missing file returns 404 naming the path. Anything else returns
// 500 with GenericErrorMessage and is only detailed in the logs.
package cvserve
