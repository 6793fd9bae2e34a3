// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	// DiscoveryFailedId covers an unreadable or missing target directory.
	DiscoveryFailedId Id = iota + 1
	// FunctionsDirMisconfiguredId covers a missing functions directory or manifest.
	FunctionsDirMisconfiguredId
	// TransformFailedId covers a source file the engine could not parse.
	TransformFailedId
	// WriteFailedId covers a rewritten file that could not be saved.
	WriteFailedId
	// ConfigLoadFailedId covers an invalid envinline.cue.
	ConfigLoadFailedId
	// HostConfigInvalidId covers an unreadable or malformed netlify.toml.
	HostConfigInvalidId
	// UnknownBuildEventId covers a build event name outside the lifecycle.
	UnknownBuildEventId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the guidance text of an issue.
	MarkdownMsg string

	// HttpLink is a documentation URL attached to an issue.
	HttpLink string

	// Issue is a catalog entry with Markdown guidance for one failure category.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

var (
	render = glamour.Render

	discoveryFailedIssue = &Issue{
		id: DiscoveryFailedId,
		mdMsg: `
# Could not read the function files

envinline scans the target directory for built function files before
inlining. The directory was missing or unreadable.

## Things you can try:
- Check that the build step producing the functions ran first
- Point envinline at the right directory:
~~~
$ envinline run --target-dir api/dist
~~~
- Set ` + "`discovery.target_dir`" + ` in envinline.cue`,
		docLinks: []HttpLink{"https://docs.netlify.com/configure-builds/file-based-configuration/#build-settings"},
	}

	functionsDirMisconfiguredIssue = &Issue{
		id: FunctionsDirMisconfiguredId,
		mdMsg: `
# Functions directory is misconfigured

Functions mode lists the entries of the configured functions directory.
Manifest mode reads a manifest written by the bundler. Neither could be read.

## Things you can try:
- Check the ` + "`[functions] directory`" + ` setting in netlify.toml
- Pass the directory explicitly:
~~~
$ envinline run --functions-dir netlify/functions
~~~
- Run ` + "`envinline list`" + ` to see what envinline resolves`,
		docLinks: []HttpLink{"https://docs.netlify.com/functions/optional-configuration/"},
	}

	transformFailedIssue = &Issue{
		id: TransformFailedId,
		mdMsg: `
# A function file could not be transformed

The file is not valid JavaScript or TypeScript for its extension, so no
environment references were replaced. The file was left untouched.

## Things you can try:
- Run the build again with ` + "`--verbose`" + ` to see the engine's location info
- Exclude generated bundles with ` + "`discovery.ignore`" + ` patterns`,
	}

	writeFailedIssue = &Issue{
		id: WriteFailedId,
		mdMsg: `
# A rewritten function file could not be saved

Files rewritten before the failure keep their inlined values; envinline does
not roll back.

## Things you can try:
- Check file permissions in the functions output directory
- Re-run the build from a clean output directory`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

envinline.cue is validated against a schema before use.

## Things you can try:
- Print the effective defaults:
~~~
$ envinline config show
~~~
- Write a fresh file and edit it:
~~~
$ envinline config init
~~~`,
	}

	hostConfigInvalidIssue = &Issue{
		id: HostConfigInvalidId,
		mdMsg: `
# netlify.toml could not be parsed

The functions directory and plugin inputs are read from netlify.toml in the
project root.

## Things you can try:
- Validate the TOML syntax
- Check that ` + "`[[plugins]]`" + ` entries have a ` + "`package`" + ` key`,
		extLinks: []HttpLink{"https://toml.io/en/v1.0.0"},
	}

	unknownBuildEventIssue = &Issue{
		id: UnknownBuildEventId,
		mdMsg: `
# Unknown build event

The build event must be one of onPreBuild, onBuild, onPostBuild, onSuccess,
onError or onEnd.

## Things you can try:
- Fix ` + "`buildEvent`" + ` in the plugin inputs or ` + "`inline.build_event`" + ` in envinline.cue`,
	}

	issues = map[Id]*Issue{
		discoveryFailedIssue.Id():           discoveryFailedIssue,
		functionsDirMisconfiguredIssue.Id(): functionsDirMisconfiguredIssue,
		transformFailedIssue.Id():           transformFailedIssue,
		writeFailedIssue.Id():               writeFailedIssue,
		configLoadFailedIssue.Id():          configLoadFailedIssue,
		hostConfigInvalidIssue.Id():         hostConfigInvalidIssue,
		unknownBuildEventIssue.Id():         unknownBuildEventIssue,
	}
)

// Id returns the catalog identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw guidance text.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// DocLinks returns a copy of the documentation links.
func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// ExtLinks returns a copy of the external links.
func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guidance and its links as styled terminal output.
// stylePath is a glamour style name such as "dark", "light" or "notty".
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if links := append(i.DocLinks(), i.ExtLinks()...); len(links) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range links {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
