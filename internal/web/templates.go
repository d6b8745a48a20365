// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import "html/template"

var formTmpl = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Med-Explorer</title></head>
<body>
<h1>Med-Explorer</h1>
<h2>Find PubMed authors from Ukraine</h2>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/search">
  <label>Email (required by NCBI) <input type="email" name="email" value="{{.Email}}" required></label><br>
  <label>Keywords, one per line<br><textarea name="keywords" rows="5" cols="40">{{.KeywordsText}}</textarea></label><br>
  <label>Authors to find <input type="number" name="authors" min="1" value="{{.Authors}}"></label><br>
  <label>Minimum keyword matches per article <input type="number" name="min_matches" min="1" value="{{.MinMatches}}"></label><br>
  <label>Student name for the co-authorship check (e.g. Vasylenko M) <input type="text" name="student" value="{{.Student}}"></label><br>
  <button type="submit">Start search</button>
</form>
</body>
</html>
`))

var headTmpl = template.Must(template.New("head").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Med-Explorer: searching</title></head>
<body>
<h1>Med-Explorer</h1>
<p>Starting search...</p>
<ul id="progress">
`))

var eventTmpl = template.Must(template.New("event").Parse(
	`<li class="{{.Kind}}" data-retrieved="{{.Retrieved}}" data-total="{{.Total}}" data-found="{{.Found}}">{{.Message}}</li>
`))

var resultTmpl = template.Must(template.New("result").Parse(`</ul>
{{if .Candidates}}
<p class="success">Found {{len .Candidates}} unique authors from Ukraine matching the criteria.</p>
{{range .Candidates}}
<section class="author">
  <h2>Author: {{.Name}}</h2>
  <p><strong>Affiliation:</strong> {{.Affiliation}}</p>
  <h3>Found article</h3>
  {{range .Articles}}
  <p><strong>PMID:</strong> {{.PMID}} | <strong>Keyword matches:</strong> {{.KeywordMatches}}</p>
  <p><strong>Title:</strong> <em>{{.Title}}</em></p>
  {{end}}
</section>
{{end}}
{{else}}
<p class="warning">No authors matching the criteria were found.</p>
{{end}}
<p><a href="/">New search</a></p>
</body>
</html>
`))
