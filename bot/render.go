package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/gemuki/bot/paginate"
)

// Discord rejects embeds above these sizes.
const (
	maxEmbedDescription = 4096
	maxFieldValue       = 1024
	maxEmbedFields      = 25
)

func embed(p paginate.Page) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       truncate(p.Title, 256),
		Description: truncate(p.Description, maxEmbedDescription),
		URL:         p.URL,
		Color:       p.Color,
	}
	if p.ImageURL != "" {
		e.Image = &discordgo.MessageEmbedImage{URL: p.ImageURL}
	}
	for i, f := range p.Fields {
		if i == maxEmbedFields {
			break
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   truncate(f.Name, 256),
			Value:  truncate(orDash(f.Value), maxFieldValue),
			Inline: f.Inline,
		})
	}
	if p.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: p.Footer}
	}
	return e
}

func controlRow(c paginate.Controls) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "◀", Style: discordgo.SecondaryButton, CustomID: c.Previous},
			discordgo.Button{Label: "▶", Style: discordgo.SecondaryButton, CustomID: c.Next},
		}},
	}
}

// webhookEdit turns a plain response into the edit of a deferred reply.
func webhookEdit(r Response) *discordgo.WebhookEdit {
	content := r.Content
	edit := &discordgo.WebhookEdit{Content: &content}
	if r.Page != nil {
		embeds := []*discordgo.MessageEmbed{embed(*r.Page)}
		edit.Embeds = &embeds
	}
	if len(r.Components) > 0 {
		components := r.Components
		edit.Components = &components
	}
	return edit
}
