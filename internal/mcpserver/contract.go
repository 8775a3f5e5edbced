package mcpserver

// RecipeFormatContract describes the recipe file format and the variables
// available to page layouts.
const RecipeFormatContract = `# RecipeBox Recipe Format Contract

Every recipe is one Markdown file under the recipes directory.

## Structure

` + "```" + `markdown
---
title: Pan-Grilled Garlic Naan      # REQUIRED
description: Soft flatbread.        # OPTIONAL
tags:                               # OPTIONAL, YAML list
  - bread
ingredients:                        # REQUIRED, at least one entry
  - name: all-purpose flour         # REQUIRED
    amount: 4 1/2                   # REQUIRED: 2, 1/2, 4 1/2 or free text
    unit: c                         # OPTIONAL
  - name: salt
    amount: a pinch
---
1. First step.
2. Second step.

Anything after the numbered list is kept as notes.
` + "```" + `

## Rules

1. **The YAML header is mandatory** and must open the file with ` + "`" + `---` + "`" + `.
2. **Every ingredient** is a mapping with ` + "`" + `name` + "`" + ` and ` + "`" + `amount` + "`" + `
   (` + "`" + `amount 1` + "`" + ` without a colon is rejected).
3. **Amounts** written as whole numbers, decimals, fractions or mixed numbers are normalized
   (` + "`" + `2/4` + "`" + ` is shown as ` + "`" + `1/2` + "`" + `). Anything else is kept as written.
4. **Steps** are the items of ordered lists in the body, in order.
5. **The identifier** of a recipe is its path without ` + "`" + `.md` + "`" + `, lowercased,
   with other characters collapsed to ` + "`" + `-` + "`" + ` (` + "`" + `Garlic Naan.md` + "`" + ` is ` + "`" + `garlic-naan` + "`" + `).
6. **Encoding** is UTF-8.

## Layouts

Layouts use Django-style syntax: ` + "`" + `{{ value }}` + "`" + `, ` + "`" + `{% for x in list %}` + "`" + `,
` + "`" + `{% if x %}` + "`" + `. Values are HTML-escaped; undefined values render empty.

| Slot | Variables |
|---|---|
| home | ` + "`" + `recipes` + "`" + ` (id, title, description, tags, url), ` + "`" + `tags` + "`" + `, ` + "`" + `tag` + "`" + ` |
| recipe | ` + "`" + `recipe` + "`" + ` (title, description, tags, ingredients[name, amount, unit, display], steps, notes, notes_html, updated_at) |
| dashboard | ` + "`" + `recipes` + "`" + `, ` + "`" + `recipe_count` + "`" + `, ` + "`" + `failures` + "`" + ` (path, message), ` + "`" + `layouts` + "`" + ` (slot, origin, diagnostic), ` + "`" + `scanned_at` + "`" + ` |

A layout that fails to parse is rejected by ` + "`" + `save_layout` + "`" + `; the
current layout keeps being served.
` + "`" + `updated_at` + "`" + ` and ` + "`" + `scanned_at` + "`" + ` are times; format them with the ` + "`" + `date` + "`" + ` filter.
A saved layout that errors while rendering is replaced by the built-in
default for that request.
`
