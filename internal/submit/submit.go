// Package submit defines the thin Submit adapter capability interface
// (spec §4.8 step 6, §9 "dynamic dispatch") that apply can optionally
// invoke after writing approved artifacts. Results are informational to
// the core — the core never performs real VCS operations itself (spec
// non-goals: no built-in VCS).
package submit

// Result is the informational outcome the core logs but never acts on.
type Result struct {
	Adapter string
	Summary string
	Err     error
}

// Adapter is the capability interface every submit variant implements.
type Adapter interface {
	Prepare(targetDir string) Result
	Commit(targetDir, message string) Result
	Push(targetDir string) Result
	OpenReview(targetDir string) Result
}

// None is the default no-op adapter.
type None struct{}

func (None) Prepare(string) Result            { return Result{Adapter: "none"} }
func (None) Commit(string, string) Result     { return Result{Adapter: "none"} }
func (None) Push(string) Result               { return Result{Adapter: "none"} }
func (None) OpenReview(string) Result         { return Result{Adapter: "none"} }

// Git is a placeholder adapter variant: the interface seam for an external
// git/GitHub submit integration. It never shells out to git itself — that
// belongs to the external-interfaces layer (spec §1) — but gives the apply
// pipeline a concrete variant to select via workflow.toml's submit.adapter.
type Git struct {
	Remote string
}

func (g Git) Prepare(targetDir string) Result {
	return Result{Adapter: "git", Summary: "prepare is an external-interface concern; no in-core git calls"}
}

func (g Git) Commit(targetDir, message string) Result {
	return Result{Adapter: "git", Summary: "commit is an external-interface concern; no in-core git calls"}
}

func (g Git) Push(targetDir string) Result {
	return Result{Adapter: "git", Summary: "push is an external-interface concern; no in-core git calls"}
}

func (g Git) OpenReview(targetDir string) Result {
	return Result{Adapter: "git", Summary: "open-review is an external-interface concern; no in-core git calls"}
}

// Resolve picks an Adapter variant by name ("git" | "none"), matching
// workflow.toml's submit.adapter field.
func Resolve(name, remote string) Adapter {
	switch name {
	case "git":
		return Git{Remote: remote}
	default:
		return None{}
	}
}
