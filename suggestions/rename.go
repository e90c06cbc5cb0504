/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package suggestions

import "strings"

// RenameResult lists, per category, the ids whose fields a project rename
// actually rewrote.
type RenameResult struct {
	Modules       []uint64 `json:"modules"`
	SelfTypes     []uint64 `json:"selfTypes"`
	ReturnTypes   []uint64 `json:"returnTypes"`
	ArgumentTypes []uint64 `json:"argumentTypes"`
}

// RenameProject rewrites every module, self-type, return-type,
// argument-type, and source-type string starting with "old." to start with
// "new.". The version advances once iff at least one id changed.
func (i *Index) RenameProject(oldName, newName string) (RenameResult, uint64) {
	oldPrefix := oldName + "."
	newPrefix := newName + "."
	rewrite := func(s string) (string, bool) {
		if !strings.HasPrefix(s, oldPrefix) {
			return s, false
		}
		return newPrefix + strings.TrimPrefix(s, oldPrefix), true
	}

	t := i.begin()
	var result RenameResult
	t.base.each(func(id uint64, e Entry) {
		clone := e.Clone()
		var module, self, ret, arg bool
		switch entry := clone.(type) {
		case *Module:
			entry.ModuleName, module = rewrite(entry.ModuleName)
		case *Type:
			entry.DefinedIn, module = rewrite(entry.DefinedIn)
			arg = rewriteArguments(entry.Params, rewrite)
		case *Constructor:
			entry.DefinedIn, module = rewrite(entry.DefinedIn)
			entry.ReturnType, ret = rewrite(entry.ReturnType)
			arg = rewriteArguments(entry.Arguments, rewrite)
		case *Method:
			entry.DefinedIn, module = rewrite(entry.DefinedIn)
			entry.SelfType, self = rewrite(entry.SelfType)
			entry.ReturnType, ret = rewrite(entry.ReturnType)
			arg = rewriteArguments(entry.Arguments, rewrite)
		case *Conversion:
			entry.DefinedIn, module = rewrite(entry.DefinedIn)
			entry.SourceType, self = rewrite(entry.SourceType)
			entry.ReturnType, ret = rewrite(entry.ReturnType)
			arg = rewriteArguments(entry.Arguments, rewrite)
		case *Function:
			entry.DefinedIn, module = rewrite(entry.DefinedIn)
			entry.ReturnType, ret = rewrite(entry.ReturnType)
			arg = rewriteArguments(entry.Arguments, rewrite)
		case *Local:
			entry.DefinedIn, module = rewrite(entry.DefinedIn)
			entry.ReturnType, ret = rewrite(entry.ReturnType)
		}
		if !module && !self && !ret && !arg {
			return
		}
		t.replace(id, clone)
		if module {
			result.Modules = append(result.Modules, id)
		}
		if self {
			result.SelfTypes = append(result.SelfTypes, id)
		}
		if ret {
			result.ReturnTypes = append(result.ReturnTypes, id)
		}
		if arg {
			result.ArgumentTypes = append(result.ArgumentTypes, id)
		}
	})
	version := t.commit()
	return result, version
}

func rewriteArguments(args []Argument, rewrite func(string) (string, bool)) bool {
	changed := false
	for n := range args {
		if rewritten, ok := rewrite(args[n].Type); ok {
			args[n].Type = rewritten
			changed = true
		}
	}
	return changed
}
