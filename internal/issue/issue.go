// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	SourceNotFoundId
	ArtifactNotFoundId
	AmbiguousMatchId
	MalformedVersionId
	DependencyCycleId
	InvalidModuleNameId
	FilesystemFailureId
	PermissionDeniedId
	RemoteFetchFailedId
	UnknownRuntimeId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal markdown using the given glamour
// style ("dark", "light", "notty" or a path to a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read, parsed or validated.

## Things you can try:
- Run 'modsync config path' to see which file is being used
- Run 'modsync config show' to see the effective values
- Check the CUE syntax against the schema printed by 'modsync config init'
- Make sure every '${...}' reference names a defined property`,
	}

	sourceNotFoundIssue = &Issue{
		id: SourceNotFoundId,
		mdMsg: `
# Source directory not found!

The directory holding the build output does not exist or is not a directory.

## Things you can try:
- Build the project before deploying
- Pass the correct directory with '--source'
- Set 'source.dir' or 'source.url' in modsync.cue`,
	}

	artifactNotFoundIssue = &Issue{
		id: ArtifactNotFoundId,
		mdMsg: `
# Artifact not found!

No file in the source directory matched the requested artifact id, classifier and type.

## Things you can try:
- List the source directory and check the artifact file names
- Check the 'artifact_id' and 'classifier' of the module in modsync.cue
- Set 'repository_dir' so modules can be resolved from a Maven repository`,
		extLinks: []HttpLink{
			"https://maven.apache.org/guides/mini/guide-naming-conventions.html",
		},
	}

	ambiguousMatchIssue = &Issue{
		id: AmbiguousMatchId,
		mdMsg: `
# Ambiguous artifact match!

More than one version of the same artifact was found where exactly one was expected.

## Things you can try:
- Remove stale builds from the source directory
- Pin the version of the artifact in modsync.cue`,
	}

	malformedVersionIssue = &Issue{
		id: MalformedVersionId,
		mdMsg: `
# Malformed version!

A version string could not be compared with the installed one.

## Things you can try:
- Check the version segment of the artifact file name
- Versions look like '1.2.3', '2.0-beta-1' or '4.1-SNAPSHOT'`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The module definitions reference each other in a loop, so no build order exists.

## Things you can try:
- Run 'modsync graph' to inspect the module dependencies
- Move the shared classes into a module both sides depend on`,
	}

	invalidModuleNameIssue = &Issue{
		id: InvalidModuleNameId,
		mdMsg: `
# Invalid module name!

Module names are dot separated segments made of letters, digits, '-' and '_'.

## Things you can try:
- Rename the module, for example 'org.example.mail'
- Remove leading, trailing or doubled dots`,
	}

	filesystemFailureIssue = &Issue{
		id: FilesystemFailureId,
		mdMsg: `
# Filesystem operation failed!

A file could not be copied, removed or written in the deployment or modules directory.

## Things you can try:
- Check that the target disk is not full
- Make sure no other process holds the file open
- Re-run with '--verbose' to see the full error chain`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

modsync does not have permission to read or write a required file.

## Things you can try:
- Check the permissions of the deployment and modules directories
- Run modsync as the user that owns the application server installation`,
	}

	remoteFetchFailedIssue = &Issue{
		id: RemoteFetchFailedId,
		mdMsg: `
# Failed to fetch remote artifacts!

The WebDAV collection could not be listed or an archive could not be downloaded.

## Things you can try:
- Open the source URL in a browser to check it is reachable
- Make sure the URL points to a collection and ends with '/'
- Check proxy settings in 'HTTP_PROXY' and 'HTTPS_PROXY'`,
	}

	unknownRuntimeIssue = &Issue{
		id: UnknownRuntimeId,
		mdMsg: `
# Unknown application server runtime!

The configured runtime is not supported.

## Things you can try:
- Set 'runtime' to "wildfly" or "none"
- Pass '--runtime none' to deploy without sentinel files`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		sourceNotFoundIssue.Id():    sourceNotFoundIssue,
		artifactNotFoundIssue.Id():  artifactNotFoundIssue,
		ambiguousMatchIssue.Id():    ambiguousMatchIssue,
		malformedVersionIssue.Id():  malformedVersionIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		invalidModuleNameIssue.Id(): invalidModuleNameIssue,
		filesystemFailureIssue.Id(): filesystemFailureIssue,
		permissionDeniedIssue.Id():  permissionDeniedIssue,
		remoteFetchFailedIssue.Id(): remoteFetchFailedIssue,
		unknownRuntimeIssue.Id():    unknownRuntimeIssue,
	}
)

// Values returns every known issue ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
