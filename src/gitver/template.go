package gitver

import "strings"

// ResolveTemplate expands {placeholder} tokens in a tag or value template.
//
// Supported placeholders:
//
//	{sha}        short commit SHA
//	{sha.full}   full commit SHA
//	{branch}     branch name, "/" replaced by "-" (tags must be valid)
//	{version}    resolved version
//	{major} {minor} {patch} {prerelease}
//
// Unknown placeholders are left untouched so a bad template is visible in
// the resulting tag rather than silently dropped.
func ResolveTemplate(template string, info *Info) string {
	if info == nil || template == "" {
		return template
	}

	r := strings.NewReplacer(
		"{sha}", info.SHA,
		"{sha.full}", info.FullSHA,
		"{branch}", safeBranch(info.Branch),
		"{version}", info.Version,
		"{major}", info.Major,
		"{minor}", info.Minor,
		"{patch}", info.Patch,
		"{prerelease}", info.Prerelease,
	)
	return r.Replace(template)
}

// safeBranch makes a branch name usable as an image tag component.
func safeBranch(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}
