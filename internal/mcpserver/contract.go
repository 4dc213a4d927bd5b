package mcpserver

// EntryFormatContract describes the markdown layout the server writes for
// each entry kind, for LLM consumers that want to reason about stored files.
const EntryFormatContract = `# PKB Entry Format

Every entry is a markdown file with a ` + "`---`" + `-delimited front-matter
block followed by the body. Files are written whole on every save; there is
no partial patching and no delete operation.

## TIL (` + "`til/YYYY-MM-DD-{slug}.md`" + `)

` + "```" + `markdown
---
title: "Learned Recursion"
date: 2024-01-15
tags: [python, algorithms]
---

Body text in standard markdown.
` + "```" + `

Every TIL entry is also linked from ` + "`til/index.md`" + `:

` + "```" + `markdown
- [Learned Recursion](2024-01-15-learned-recursion.md) (2024-01-15)
` + "```" + `

## Prompt (` + "`ai/prompts/{category}/{slug}.md`" + `)

Categories: coding, infrastructure, documentation, general.

` + "```" + `markdown
---
name: "Code Review Checklist"
category: coding
description: "Structured review pass"
date: 2024-01-15
---

The full prompt text.
` + "```" + `

## Pattern (` + "`patterns/{category}/{slug}.md`" + `)

Categories: agent, cloud, devops.

` + "```" + `markdown
---
name: "Retry with Backoff"
category: devops
date: 2024-01-15
tags: [reliability]
---

## Problem

What goes wrong without the pattern.

## Solution

How the pattern fixes it.
` + "```" + `

## Rules

1. Front-matter keys appear in the order shown; tags render inline as
   ` + "`[a, b]`" + ` (` + "`[]`" + ` when empty).
2. File paths derive deterministically from the title/name via a slug
   (lowercase, non-alphanumeric runs collapsed to ` + "`-`" + `), so saving the
   same entry twice overwrites the same file.
3. Dates are UTC calendar dates, ` + "`YYYY-MM-DD`" + `.
4. Encoding is UTF-8 with a trailing newline.
`
