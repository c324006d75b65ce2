package mcpserver

// HeaderFormatContract describes the article header understood by the publisher.
const HeaderFormatContract = `# devpub Article Format

Each article is one Markdown file directly inside the articles directory.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – defaults to the file name without extension
published: false                    # OPTIONAL – true publishes, false keeps a draft (default)
tags:                               # OPTIONAL – list or "a, b"; only the first 4 are sent
  - go
  - tutorial
series: Go in practice              # OPTIONAL
canonical_url: https://example.com  # OPTIONAL – original location when cross-posting
cover_image: https://example.com/c.png  # OPTIONAL – sent as main_image
description: One line summary       # OPTIONAL
organization_id: 1234               # OPTIONAL – integer, used on create only
---

Body text in standard Markdown.
` + "```" + `

A TOML header fenced with ` + "`+++`" + ` lines is accepted as well.

## Matching

The title is the only link between a file and a remote article. Publishing a
file whose title exactly equals (case-sensitive) an existing article of the
account updates that article; otherwise a new one is created. Renaming the
title therefore creates a new article.
`
